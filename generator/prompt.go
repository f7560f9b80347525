package generator

import (
	"fmt"
	"strings"

	"arabic_content_publisher/content"
)

// Prompt is the message set sent to the LLM.
type Prompt struct {
	System      string
	User        string
	Temperature float64
	// JSON asks the backend for a JSON object response when it supports one.
	JSON bool
}

const defaultTemperature = 0.7

// minWords is the lower bound on body length per content type.
var minWords = map[content.ContentType]int{
	content.TypeListening: 50,
	content.TypeReading:   100,
	content.TypePodcast:   80,
}

var levelGuidance = map[content.Level]string{
	content.LevelA1: "الأَسْئِلَةُ سَهْلَةٌ: مَعْلُومَاتٌ أَسَاسِيَّةٌ مَذْكُورَةٌ صَرَاحَةً فِي النَّصِّ",
	content.LevelA2: "الأَسْئِلَةُ بَيْنَ السَّهْلَةِ وَالمُتَوَسِّطَةِ: مَعْلُومَاتٌ وَاضِحَةٌ مَعَ قَلِيلٍ مِنَ الاسْتِنْتَاجِ",
	content.LevelB1: "الأَسْئِلَةُ مُتَوَسِّطَةُ الصُّعُوبَةِ: تَحْتَاجُ فَهْمًا عَمِيقًا وَرَبْطًا بَيْنَ الأَفْكَارِ",
	content.LevelB2: "الأَسْئِلَةُ صَعْبَةٌ: تَحْتَاجُ تَحْلِيلًا نَقْدِيًّا وَفَهْمًا شَامِلًا",
}

const jsonShape = `{
  "topic": "...",
  "title": "...",
  "body": "...",
  "questions": [
    {"question": "...", "options": ["...", "...", "...", "..."], "correctAnswer": "A", "explanation": "..."}
  ],
  "imageUrl": ""
}`

// BuildContentPrompt produces the instruction for a full content item.
func BuildContentPrompt(req Request) Prompt {
	var sb strings.Builder
	sb.WriteString("اكْتُبْ بِاللُّغَةِ العَرَبِيَّةِ مَعَ التَّشْكِيلِ الكَامِلِ.\n\n")
	sb.WriteString(fmt.Sprintf("نَوْعُ المُحْتَوَى: %s\n", req.ContentType.ArabicName()))
	sb.WriteString(fmt.Sprintf("المُسْتَوَى: %s\n\n", req.Level))

	if req.Topic != "" {
		sb.WriteString(fmt.Sprintf("1. المَوْضُوعُ: \"%s\"\n", req.Topic))
	} else {
		sb.WriteString("1. اخْتَرْ مَوْضُوعًا شَيِّقًا مِنَ العُلُومِ أَوِ التِّكْنُولُوجْيَا أَوِ الصِّحَّةِ أَوِ الثَّقَافَةِ أَوِ التَّارِيخِ أَوِ البِيئَةِ أَوِ التَّعْلِيمِ (تَجَنَّبِ المَوَاضِيعَ الدِّينِيَّةَ)\n")
	}
	sb.WriteString(fmt.Sprintf("2. اكْتُبْ نَصًّا لَا يَقِلُّ عَنْ %d كَلِمَةً بِمُسْتَوَى %s\n", minWords[req.ContentType], req.Level))
	sb.WriteString(fmt.Sprintf("3. أَنْشِئْ %d أَسْئِلَةِ اخْتِيَارٍ مِنْ مُتَعَدِّدٍ بِالضَّبْطِ، لِكُلِّ سُؤَالٍ 4 خِيَارَاتٍ\n", QuestionCount))
	switch req.ContentType {
	case content.TypeListening:
		sb.WriteString("4. الأَسْئِلَةُ عَمَّا سَمِعَهُ المُتَعَلِّمُ فِي الصَّوْتِ\n")
	case content.TypeReading:
		sb.WriteString("4. الأَسْئِلَةُ عَمَّا قَرَأَهُ المُتَعَلِّمُ فِي النَّصِّ\n")
	default:
		sb.WriteString("4. الأَسْئِلَةُ عَنْ مُحْتَوَى البُودْكَاسْتِ\n")
	}
	sb.WriteString(fmt.Sprintf("5. %s\n\n", levelGuidance[req.Level]))
	sb.WriteString("Respond with ONLY a JSON object in exactly this shape (no markdown, no commentary). ")
	sb.WriteString("correctAnswer must be one of A, B, C, D:\n")
	sb.WriteString(jsonShape)

	return Prompt{
		System:      "You are an educational content writer for Arabic learners. Output strict JSON only.",
		User:        sb.String(),
		Temperature: defaultTemperature,
		JSON:        true,
	}
}

const questionsShape = `{
  "questions": [
    {"question": "...", "options": ["...", "...", "...", "..."], "correctAnswer": "A", "explanation": "..."}
  ]
}`

// BuildQuestionsPrompt asks for comprehension questions about a text the admin supplied.
func BuildQuestionsPrompt(text string, level content.Level) Prompt {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("أَنْشِئْ %d أَسْئِلَةِ اخْتِيَارٍ مِنْ مُتَعَدِّدٍ بِالتَّشْكِيلِ الكَامِلِ حَوْلَ النَّصِّ التَّالِي، ", QuestionCount))
	sb.WriteString("مَعَ خِيَارَاتٍ خَاطِئَةٍ مُقْنِعَةٍ.\n")
	sb.WriteString(fmt.Sprintf("المُسْتَوَى: %s. %s\n\n", level, levelGuidance[level]))
	sb.WriteString("النَّصُّ:\n")
	sb.WriteString(text)
	sb.WriteString("\n\nRespond with ONLY a JSON object in exactly this shape:\n")
	sb.WriteString(questionsShape)

	return Prompt{
		System:      "You write reading-comprehension quizzes. Output strict JSON only.",
		User:        sb.String(),
		Temperature: defaultTemperature,
		JSON:        true,
	}
}
