package bot

import (
	"fmt"
	"strconv"
	"strings"

	"arabic_content_publisher/content"
)

type CommandKind int

const (
	CmdMenu CommandKind = iota
	CmdApprove
	CmdReject
	CmdApproveCustom
	CmdRejectCustom
	CmdCreate
	CmdBrowse
	CmdBrowseType
	CmdBrowseList
	CmdView
	CmdAlreadyApproved
	CmdAlreadyRejected
)

// Command is decoded callback data.
type Command struct {
	Kind        CommandKind
	ID          uint
	ContentType content.ContentType
	Level       content.Level
	Page        int
}

// Callback data encoders. Telegram caps callback data at 64 bytes.
func (c Command) Data() string {
	switch c.Kind {
	case CmdApprove:
		return fmt.Sprintf("approve_%d", c.ID)
	case CmdReject:
		return fmt.Sprintf("reject_%d", c.ID)
	case CmdApproveCustom:
		return fmt.Sprintf("capprove_%d", c.ID)
	case CmdRejectCustom:
		return fmt.Sprintf("creject_%d", c.ID)
	case CmdCreate:
		return fmt.Sprintf("create_%s_%s", c.ContentType, c.Level)
	case CmdBrowse:
		return "browse"
	case CmdBrowseType:
		return "browse_" + string(c.ContentType)
	case CmdBrowseList:
		return fmt.Sprintf("browse_%s_%s_%d", c.ContentType, c.Level, c.Page)
	case CmdView:
		return fmt.Sprintf("view_%d", c.ID)
	case CmdAlreadyApproved:
		return "already_approved"
	case CmdAlreadyRejected:
		return "already_rejected"
	}
	return "menu"
}

func badCallback(data, reason string) error {
	return &content.ValidationError{Field: "callback_data", Reason: fmt.Sprintf("%q: %s", data, reason)}
}

// ParseCommand decodes callback data once so handlers never look at raw strings.
func ParseCommand(data string) (Command, error) {
	switch data {
	case "menu":
		return Command{Kind: CmdMenu}, nil
	case "browse":
		return Command{Kind: CmdBrowse}, nil
	case "already_approved":
		return Command{Kind: CmdAlreadyApproved}, nil
	case "already_rejected":
		return Command{Kind: CmdAlreadyRejected}, nil
	}

	head, rest, ok := strings.Cut(data, "_")
	if !ok || rest == "" {
		return Command{}, badCallback(data, "unknown action")
	}
	parts := strings.Split(rest, "_")

	idCmd := func(kind CommandKind) (Command, error) {
		if len(parts) != 1 {
			return Command{}, badCallback(data, "expected a single id")
		}
		id, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil || id == 0 {
			return Command{}, badCallback(data, "invalid id")
		}
		return Command{Kind: kind, ID: uint(id)}, nil
	}

	switch head {
	case "approve":
		return idCmd(CmdApprove)
	case "reject":
		return idCmd(CmdReject)
	case "capprove":
		return idCmd(CmdApproveCustom)
	case "creject":
		return idCmd(CmdRejectCustom)
	case "view":
		return idCmd(CmdView)
	case "create":
		if len(parts) != 2 {
			return Command{}, badCallback(data, "expected type and level")
		}
		ct, err := content.ParseContentType(parts[0])
		if err != nil {
			return Command{}, err
		}
		lvl, err := content.ParseLevel(parts[1])
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: CmdCreate, ContentType: ct, Level: lvl}, nil
	case "browse":
		ct, err := content.ParseContentType(parts[0])
		if err != nil {
			return Command{}, err
		}
		switch len(parts) {
		case 1:
			return Command{Kind: CmdBrowseType, ContentType: ct}, nil
		case 3:
			lvl, err := content.ParseLevel(parts[1])
			if err != nil {
				return Command{}, err
			}
			page, err := strconv.Atoi(parts[2])
			if err != nil || page < 0 {
				return Command{}, badCallback(data, "invalid page")
			}
			return Command{Kind: CmdBrowseList, ContentType: ct, Level: lvl, Page: page}, nil
		}
		return Command{}, badCallback(data, "malformed browse")
	}
	return Command{}, badCallback(data, "unknown action")
}
