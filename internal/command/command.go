// Package command classifies incoming message text into bot commands.
// Parsing is pure: no authorization and no side effects happen here.
package command

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrUsage marks a recognized command whose arguments are malformed.
var ErrUsage = errors.New("invalid command usage")

// Kind identifies a command variant.
type Kind int

// Command kinds.
const (
	Unknown Kind = iota
	Start
	Help
	Add
	Modify
	Remove
	ListPast
	ListUpcoming
	ListAll
	Overdue
	Ask
	Translate
	Image
)

var kindNames = map[Kind]string{
	Unknown:      "unknown",
	Start:        "start",
	Help:         "help",
	Add:          "add",
	Modify:       "modify",
	Remove:       "remove",
	ListPast:     "last_tasks",
	ListUpcoming: "upcoming_tasks",
	ListAll:      "list",
	Overdue:      "overdue",
	Ask:          "ask",
	Translate:    "translate",
	Image:        "image",
}

// String returns the command name as typed after the slash.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Mutating reports whether the command changes stored deadlines.
func (k Kind) Mutating() bool {
	return k == Add || k == Modify || k == Remove
}

// UsesAI reports whether the command calls the LLM backend.
func (k Kind) UsesAI() bool {
	return k == Ask || k == Translate || k == Image
}

// Command is a parsed message. Only the fields relevant to Kind are set.
type Command struct {
	Kind Kind

	ID      int64
	Title   string
	RawDate string

	Prompt     string
	TargetLang string

	// Err is non-nil, wrapping ErrUsage, when Kind was recognized but its
	// arguments were not.
	Err error
}

var byName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		if k != Unknown {
			m[name] = k
		}
	}
	return m
}()

var (
	// The date is always the trailing "YYYY-MM-DD HH:MM" pair; the title is
	// everything between the command and the date.
	addArgs    = regexp.MustCompile(`^(.+)\s+(\d{4}-\d{2}-\d{2} \d{2}:\d{2})$`)
	modifyArgs = regexp.MustCompile(`^(\d+)\s+(.+)\s+(\d{4}-\d{2}-\d{2} \d{2}:\d{2})$`)
	removeArgs = regexp.MustCompile(`^(\d+)$`)
)

// Parse classifies text. botUsername, without the leading @, lets commands
// addressed to this bot ("/add@deadline_bot ...") match while commands for
// other bots are Unknown.
func Parse(text, botUsername string) Command {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return Command{Kind: Unknown}
	}

	head, args, _ := strings.Cut(text, " ")
	if i := strings.IndexAny(head, "\n\t"); i != -1 {
		args = head[i+1:] + " " + args
		head = head[:i]
	}
	args = strings.TrimSpace(args)

	name := strings.TrimPrefix(head, "/")
	if at := strings.IndexByte(name, '@'); at != -1 {
		target := name[at+1:]
		name = name[:at]
		if botUsername != "" && !strings.EqualFold(target, botUsername) {
			return Command{Kind: Unknown}
		}
	}

	kind, ok := byName[strings.ToLower(name)]
	if !ok {
		return Command{Kind: Unknown}
	}

	cmd := Command{Kind: kind}
	switch kind {
	case Add:
		m := addArgs.FindStringSubmatch(args)
		if m == nil {
			cmd.Err = usageErr(kind)
			break
		}
		cmd.Title = strings.TrimSpace(m[1])
		cmd.RawDate = m[2]
	case Modify:
		m := modifyArgs.FindStringSubmatch(args)
		if m == nil {
			cmd.Err = usageErr(kind)
			break
		}
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			cmd.Err = usageErr(kind)
			break
		}
		cmd.ID = id
		cmd.Title = strings.TrimSpace(m[2])
		cmd.RawDate = m[3]
	case Remove:
		m := removeArgs.FindStringSubmatch(args)
		if m == nil {
			cmd.Err = usageErr(kind)
			break
		}
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			cmd.Err = usageErr(kind)
			break
		}
		cmd.ID = id
	case Ask, Image:
		if args == "" {
			cmd.Err = usageErr(kind)
			break
		}
		cmd.Prompt = args
	case Translate:
		lang, rest, found := strings.Cut(args, " ")
		rest = strings.TrimSpace(rest)
		if !found || lang == "" || rest == "" {
			cmd.Err = usageErr(kind)
			break
		}
		cmd.TargetLang = lang
		cmd.Prompt = rest
	}

	return cmd
}

func usageErr(k Kind) error {
	return &usageError{kind: k}
}

type usageError struct {
	kind Kind
}

func (e *usageError) Error() string {
	return "invalid arguments for /" + e.kind.String()
}

func (e *usageError) Unwrap() error {
	return ErrUsage
}
