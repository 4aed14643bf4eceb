package handlers

import (
	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/deadlinebot/internal/command"
)

// RegisteredHandler represents a command handler with its description and middleware.
// When MatchFunc is set it takes precedence over Pattern and MatchType.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Description string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
	MatchFunc   tgbot.MatchFunc
}

// matchCommand matches message updates whose text parses as kind, including
// the "/cmd@botname" form addressed to this bot.
func matchCommand(deps HandlerDeps, kind command.Kind) tgbot.MatchFunc {
	return func(update *models.Update) bool {
		if update.Message == nil {
			return false
		}
		return command.Parse(update.Message.Text, deps.botUsername()).Kind == kind
	}
}

func commandHandler(deps HandlerDeps, kind command.Kind, description string, h tgbot.HandlerFunc, mw ...tgbot.Middleware) RegisteredHandler {
	return RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     kind.String(),
		Description: description,
		Handler:     h,
		Middleware:  mw,
		MatchType:   tgbot.MatchTypeCommandStartOnly,
		MatchFunc:   matchCommand(deps, kind),
	}
}

// RegisterAllCommands initializes and returns a map of all available bot commands.
// It configures each command with appropriate handlers and middleware.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	handlers := make(map[string]RegisteredHandler)

	handlers["/start"] = commandHandler(deps, command.Start, "", NewStartHandler(deps))
	handlers["/help"] = commandHandler(deps, command.Help, "Show available commands", NewHelpHandler(deps))

	authorMiddleware := []tgbot.Middleware{AuthorsOnly(deps)}

	handlers["/add"] = commandHandler(deps, command.Add, "Add a deadline: <title> <YYYY-MM-DD HH:MM>",
		NewAddHandler(deps), authorMiddleware...)
	handlers["/modify"] = commandHandler(deps, command.Modify, "Change a deadline: <id> <title> <YYYY-MM-DD HH:MM>",
		NewModifyHandler(deps), authorMiddleware...)
	handlers["/remove"] = commandHandler(deps, command.Remove, "Remove a deadline: <id>",
		NewRemoveHandler(deps), authorMiddleware...)

	handlers["/last_tasks"] = commandHandler(deps, command.ListPast, "Deadlines of the last days", NewListHandler(deps, command.ListPast))
	handlers["/upcoming_tasks"] = commandHandler(deps, command.ListUpcoming, "Deadlines of the coming days", NewListHandler(deps, command.ListUpcoming))
	handlers["/list"] = commandHandler(deps, command.ListAll, "All deadlines", NewListHandler(deps, command.ListAll))
	handlers["/overdue"] = commandHandler(deps, command.Overdue, "Deadlines that are due", NewListHandler(deps, command.Overdue))

	aiMiddleware := []tgbot.Middleware{AllowedGroupsOnly(deps), RateLimit(deps)}

	handlers["/ask"] = commandHandler(deps, command.Ask, "Ask the assistant: <question>",
		NewAskHandler(deps), aiMiddleware...)
	handlers["/translate"] = commandHandler(deps, command.Translate, "Translate: <language> <text>",
		NewTranslateHandler(deps), aiMiddleware...)
	handlers["/image"] = commandHandler(deps, command.Image, "Generate an image: <description>",
		NewImageHandler(deps), aiMiddleware...)

	return handlers
}
