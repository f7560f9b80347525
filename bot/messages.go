package bot

import (
	"fmt"
	"html"
	"strings"

	"arabic_content_publisher/content"
	"arabic_content_publisher/publisher"
)

const (
	msgWelcome         = "🎓 <b>مَرْحَبًا بِكَ!</b>\n\nاخْتَرْ نَوْعَ المُحْتَوَى وَالمُسْتَوَى، أَوْ أَرْسِلْ نَصًّا لِإِعْدَادِ أَسْئِلَةٍ لَهُ:"
	msgUnknownCommand  = "❓ أَمْرٌ غَيْرُ مَعْرُوفٍ. اسْتَخْدِمْ /menu"
	msgUnknownAction   = "❓ إِجْرَاءٌ غَيْرُ مَعْرُوفٍ"
	msgCustomTooShort  = "✍️ النَّصُّ قَصِيرٌ جِدًّا. أَرْسِلْ فِقْرَةً كَامِلَةً لِإِعْدَادِ الأَسْئِلَةِ."
	msgCustomAccepted  = "⏳ جَارٍ إِعْدَادُ الأَسْئِلَةِ وَالصَّوْتِ... سَتَتَلَقَّى مُعَايَنَةً قَرِيبًا."
	msgEditUsage       = "✏️ الاسْتِخْدَامُ: <code>/edit &lt;slug&gt; &lt;title|body|topic|image&gt; &lt;value&gt;</code>"
	msgEdited          = "✅ تَمَّ تَعْدِيلُ %s فِي %s"
	msgNotFound        = "⚠️ المُحْتَوَى غَيْرُ مَوْجُودٍ"
	msgApproved        = "✅ تَمَّ التَّأْكِيدُ! سَيُرْسَلُ المُحْتَوَى إِلَى القَنَاةِ..."
	msgRejected        = "❌ تَمَّ الرَّفْضُ. لَنْ يُرْسَلَ المُحْتَوَى."
	msgAlreadyApproved = "ℹ️ تَمَّ تَأْكِيدُ هَذَا المُحْتَوَى مُسْبَقًا"
	msgAlreadyRejected = "ℹ️ تَمَّ رَفْضُ هَذَا المُحْتَوَى مُسْبَقًا"
	msgApprovedBadge   = "✅ تَمَّ التَّأْكِيدُ"
	msgRejectedBadge   = "❌ مَرْفُوضٌ"
	msgPublished       = "📢 تَمَّ النَّشْرُ فِي القَنَاةِ"
	msgCreating        = "🔄 يُنْشَأُ %s - %s..."
	msgCreateStarted   = "✅ تَمَّ! يُنْشَأُ %s - %s\n\nسَتَتَلَقَّى مُعَايَنَةً قَرِيبًا..."
	msgBrowseTypes     = "📚 اخْتَرْ نَوْعَ المُحْتَوَى:"
	msgBrowseLevels    = "📚 %s: اخْتَرِ المُسْتَوَى:"
	msgListHeader      = "📚 %s - %s (صَفْحَةُ %d مِنْ %d)"
	msgEmptyList       = "📭 لَا يُوجَدُ مُحْتَوًى بَعْدُ"
	msgBack            = "⬅️ رُجُوعٌ"
	msgPrev            = "◀️ السَّابِقُ"
	msgNext            = "التَّالِي ▶️"
	msgBrowseButton    = "📚 تَصَفُّحُ المُحْتَوَى"
	msgMenuButton      = "🏠 القَائِمَةُ"
)

func msgError(err error) string {
	return "❌ خَطَأٌ: " + html.EscapeString(err.Error())
}

func msgPublishFailed(err error) string {
	return "❌ فَشِلَ النَّشْرُ: " + html.EscapeString(err.Error())
}

var statusEmoji = map[content.Status]string{
	content.StatusDraft:    "📝",
	content.StatusApproved: "✅",
	content.StatusRejected: "❌",
	content.StatusPosted:   "📢",
}

// menuKeyboard is the type × level grid, two levels per row.
func menuKeyboard() publisher.Keyboard {
	var kb publisher.Keyboard
	for _, ct := range content.ContentTypes {
		for i := 0; i < len(content.Levels); i += 2 {
			var row []publisher.Button
			for _, lvl := range content.Levels[i:min(i+2, len(content.Levels))] {
				row = append(row, publisher.Button{
					Text: fmt.Sprintf("%s %s - %s", ct.Emoji(), ct, lvl),
					Data: Command{Kind: CmdCreate, ContentType: ct, Level: lvl}.Data(),
				})
			}
			kb = append(kb, row)
		}
	}
	return append(kb, publisher.Row(publisher.Button{Text: msgBrowseButton, Data: Command{Kind: CmdBrowse}.Data()}))
}

func browseTypesKeyboard() publisher.Keyboard {
	var row []publisher.Button
	for _, ct := range content.ContentTypes {
		row = append(row, publisher.Button{
			Text: ct.Emoji() + " " + string(ct),
			Data: Command{Kind: CmdBrowseType, ContentType: ct}.Data(),
		})
	}
	return publisher.Keyboard{row, publisher.Row(publisher.Button{Text: msgMenuButton, Data: Command{Kind: CmdMenu}.Data()})}
}

func browseLevelsKeyboard(ct content.ContentType) publisher.Keyboard {
	var row []publisher.Button
	for _, lvl := range content.Levels {
		row = append(row, publisher.Button{
			Text: string(lvl),
			Data: Command{Kind: CmdBrowseList, ContentType: ct, Level: lvl}.Data(),
		})
	}
	return publisher.Keyboard{row, publisher.Row(publisher.Button{Text: msgBack, Data: Command{Kind: CmdBrowse}.Data()})}
}

func listKeyboard(items []content.Session, cmd Command, total int64, back []publisher.Button) publisher.Keyboard {
	var kb publisher.Keyboard
	for _, s := range items {
		kb = append(kb, publisher.Row(publisher.Button{
			Text: statusEmoji[s.Status] + " " + publisher.Truncate(s.Title, maxButtonTitleLen),
			Data: Command{Kind: CmdView, ID: s.ID}.Data(),
		}))
	}
	var nav []publisher.Button
	if cmd.Page > 0 {
		prev := cmd
		prev.Page--
		nav = append(nav, publisher.Button{Text: msgPrev, Data: prev.Data()})
	}
	if int64(cmd.Page+1)*PageSize < total {
		next := cmd
		next.Page++
		nav = append(nav, publisher.Button{Text: msgNext, Data: next.Data()})
	}
	if len(nav) > 0 {
		kb = append(kb, nav)
	}
	return append(kb, back)
}

func formatDetail(s *content.Session, baseURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s</b>\n\n", s.ContentType.Emoji(), html.EscapeString(s.Title))
	fmt.Fprintf(&b, "🏷 %s | 📊 %s\n", s.ContentType.ArabicName(), s.Level)
	fmt.Fprintf(&b, "%s %s (%s)\n", statusEmoji[s.Status], s.Status.ArabicLabel(), s.Status.Stage())
	if s.Topic != nil && *s.Topic != "" {
		b.WriteString("🎯 " + html.EscapeString(*s.Topic) + "\n")
	}
	fmt.Fprintf(&b, "❓ %d | 🕒 %s\n", len(s.Questions), s.CreatedAt.UTC().Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "🆔 <code>%s</code>\n", html.EscapeString(s.Slug))
	if baseURL != "" {
		b.WriteString("🔗 " + html.EscapeString(baseURL+"/demo/"+s.Slug))
	}
	return b.String()
}
