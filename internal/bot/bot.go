// Copyright (c) 2025 the vmlink authors
// vmlink - remote VM operations over chat
// This source code is licensed under the MIT license found in the LICENSE file.

// Package bot is the chat-side glue: it parses recognized commands, drives
// the linker and the runner, and maps every failure to one human-readable
// message. The transport itself (delivery, rendering, size limits) is an
// external collaborator behind the Transport interface.
package bot

import (
	"context"
	"errors"
	"strings"
	"sync"

	"vmlink/internal/db"
	"vmlink/internal/i18n"
	"vmlink/internal/linker"
	"vmlink/internal/logging"
	"vmlink/internal/model"
	"vmlink/internal/remote"
	"vmlink/internal/runner"
)

// Handler executes one recognized command for one user.
type Handler struct {
	store     db.Store
	linker    *linker.Linker
	runner    *runner.Runner
	transport Transport
}

// NewHandler wires the chat glue over the core components.
func NewHandler(store db.Store, lk *linker.Linker, rn *runner.Runner, tr Transport) *Handler {
	return &Handler{store: store, linker: lk, runner: rn, transport: tr}
}

// Handle processes one update. It never panics outward and never returns an
// error: every failure becomes a reply, so one user's trouble cannot kill
// the dispatch loop for others.
func (h *Handler) Handle(ctx context.Context, up Update) {
	defer func() {
		if r := recover(); r != nil {
			logging.Errorf("bot: panic handling update from %d: %v", up.UserID, r)
			h.send(up.UserID, i18n.T("err.internal"))
		}
	}()

	cmd, args := splitCommand(up.Text)
	logging.Debugf("bot: user %d -> %s (%d args)", up.UserID, cmd, len(args))

	switch cmd {
	case "/start":
		h.handleStart(up)
	case "/help":
		h.send(up.UserID, i18n.T("bot.help"))
	case "/status":
		h.send(up.UserID, i18n.Tf("bot.status", map[string]interface{}{"ID": up.UserID, "Name": orDefault(up.Username, "—")}))
	case "/reg":
		h.handleRegister(up, args)
	case "/code":
		if len(args) != 1 {
			h.send(up.UserID, i18n.T("bot.code_usage"))
			return
		}
		h.handleCode(up, args[0])
	case "/reset":
		h.linker.Reset(up.UserID)
		h.send(up.UserID, i18n.T("bot.reset_done"))
	case "/vmpath":
		h.handleVMPath(up, args)
	case "/check":
		h.handleCheck(ctx, up)
	case "/ls":
		h.handleList(ctx, up, args)
	case "/cat":
		h.handleCat(ctx, up, args)
	default:
		// Bare text while awaiting a code is treated as the code itself.
		if !strings.HasPrefix(cmd, "/") && h.linker.Awaiting(up.UserID) {
			h.handleCode(up, strings.TrimSpace(up.Text))
			return
		}
		h.send(up.UserID, i18n.T("bot.unknown_command"))
	}
}

func (h *Handler) handleStart(up Update) {
	if _, err := h.linker.EnsureIdentity(up.UserID, up.Username); err != nil {
		h.sendError(up.UserID, err)
		return
	}
	h.send(up.UserID, i18n.Tf("bot.greeting", map[string]interface{}{"Name": orDefault(up.Username, "there"), "ID": up.UserID}))
}

func (h *Handler) handleRegister(up Update, args []string) {
	if len(args) != 1 {
		h.send(up.UserID, i18n.T("bot.reg_usage"))
		return
	}
	var res linker.Result
	var err error
	switch strings.ToLower(args[0]) {
	case string(model.RoleIssuer):
		res, err = h.linker.ChooseIssuer(up.UserID, up.Username)
	case string(model.RoleSubscriber):
		res, err = h.linker.ChooseSubscriber(up.UserID, up.Username)
	default:
		h.send(up.UserID, i18n.T("bot.reg_usage"))
		return
	}
	if err != nil {
		h.sendError(up.UserID, err)
		return
	}
	h.sendLinkResult(up.UserID, res)
}

func (h *Handler) handleCode(up Update, code string) {
	res, err := h.linker.SubmitCode(up.UserID, up.Username, code)
	if err != nil {
		h.sendError(up.UserID, err)
		return
	}
	h.sendLinkResult(up.UserID, res)
}

func (h *Handler) sendLinkResult(userID int64, res linker.Result) {
	switch {
	case res.Already:
		h.send(userID, i18n.Tf("bot.already_registered", map[string]interface{}{"Role": string(res.Role)}))
	case res.AwaitingCode:
		h.send(userID, i18n.T("bot.awaiting_code"))
	case res.Role == model.RoleIssuer:
		h.send(userID, i18n.Tf("bot.registered_issuer", map[string]interface{}{"Code": res.IssuerCode}))
	default:
		h.send(userID, i18n.T("bot.registered_subscriber"))
	}
}

func (h *Handler) handleVMPath(up Update, args []string) {
	if len(args) != 3 {
		h.send(up.UserID, i18n.T("bot.vmpath_usage"))
		return
	}
	cred, err := parseVMPath(args)
	if err != nil {
		// Rejected before any store mutation or network activity.
		h.sendError(up.UserID, err)
		return
	}
	if err := h.store.SaveCredential(up.UserID, cred); err != nil {
		h.sendError(up.UserID, err)
		return
	}
	logging.Infof("bot: user %d saved credential for %s", up.UserID, cred)
	h.send(up.UserID, i18n.T("bot.vmpath_saved"))
}

func (h *Handler) handleCheck(ctx context.Context, up Update) {
	h.send(up.UserID, i18n.T("bot.checking"))
	res, err := h.runner.Run(ctx, up.UserID, runner.Probe())
	if err != nil {
		h.sendError(up.UserID, err)
		return
	}
	cred, _ := h.store.GetCredential(up.UserID)
	host := ""
	if cred != nil {
		host = cred.Host
	}
	h.send(up.UserID, i18n.Tf("bot.check_ok", map[string]interface{}{
		"Host": host,
		"Out":  strings.TrimSpace(res.Stdout),
	}))
}

func (h *Handler) handleList(ctx context.Context, up Update, args []string) {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	h.send(up.UserID, i18n.Tf("bot.listing", map[string]interface{}{"Path": path}))
	res, err := h.runner.Run(ctx, up.UserID, runner.List(path))
	if err != nil {
		h.sendError(up.UserID, err)
		return
	}
	if strings.TrimSpace(res.Stdout) == "" {
		h.send(up.UserID, i18n.Tf("bot.dir_empty", map[string]interface{}{"Path": path}))
		return
	}
	h.sendPre(up.UserID, res.Stdout)
}

func (h *Handler) handleCat(ctx context.Context, up Update, args []string) {
	if len(args) != 1 {
		h.send(up.UserID, i18n.T("bot.cat_usage"))
		return
	}
	path := args[0]
	h.send(up.UserID, i18n.Tf("bot.reading", map[string]interface{}{"Path": path}))
	res, err := h.runner.Run(ctx, up.UserID, runner.ReadFile(path))
	if err != nil {
		h.sendError(up.UserID, err)
		return
	}
	if res.Stdout == "" {
		h.send(up.UserID, i18n.Tf("bot.file_empty", map[string]interface{}{"Path": path}))
		return
	}
	h.sendPre(up.UserID, res.Stdout)
}

// send delivers one reply, chunked when it exceeds the transport budget.
func (h *Handler) send(userID int64, text string) {
	for _, chunk := range remote.SplitText(text, remote.ChunkLimit) {
		if err := h.transport.Send(userID, chunk); err != nil {
			logging.Warnf("bot: send to %d failed: %v", userID, err)
			return
		}
	}
}

// sendPre delivers preformatted output, chunking the body before wrapping
// so markup never pushes a chunk over the transport limit.
func (h *Handler) sendPre(userID int64, body string) {
	for _, chunk := range remote.SplitText(body, remote.ChunkLimit) {
		if err := h.transport.Send(userID, "<pre>"+chunk+"</pre>"); err != nil {
			logging.Warnf("bot: send to %d failed: %v", userID, err)
			return
		}
	}
}

// sendError maps a taxonomy error onto its user-facing message.
func (h *Handler) sendError(userID int64, err error) {
	var exitErr *runner.RemoteExitError
	if errors.As(err, &exitErr) {
		h.send(userID, i18n.T("err.remote_exit"))
		if exitErr.Stderr != "" {
			h.sendPre(userID, exitErr.Stderr)
		}
		return
	}
	logging.Warnf("bot: user %d: %v", userID, err)
	h.send(userID, errorMessage(err))
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, db.ErrNotRegistered):
		return i18n.T("err.not_registered")
	case errors.Is(err, runner.ErrNoCredentials):
		return i18n.T("err.no_credentials")
	case errors.Is(err, ErrInvalidPort):
		return i18n.T("err.invalid_port")
	case errors.Is(err, ErrInvalidArguments):
		return i18n.T("err.invalid_args")
	case errors.Is(err, remote.ErrAuthentication):
		return i18n.T("err.auth")
	case errors.Is(err, remote.ErrTimeout):
		return i18n.T("err.timeout")
	case errors.Is(err, remote.ErrTransport):
		return i18n.T("err.transport")
	case errors.Is(err, runner.ErrNotTextFile):
		return i18n.T("err.not_text_file")
	case errors.Is(err, linker.ErrInvalidCode):
		return i18n.T("err.invalid_code")
	case errors.Is(err, linker.ErrCodeGenerationExhausted):
		return i18n.T("err.code_exhausted")
	case errors.Is(err, linker.ErrNotAwaitingCode):
		return i18n.T("bot.not_awaiting")
	case errors.Is(err, db.ErrDuplicate):
		return i18n.T("err.conflict")
	default:
		return i18n.T("err.internal")
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Dispatcher fans incoming updates out to the handler, one goroutine per
// update so blocking SSH work never stalls unrelated users.
type Dispatcher struct {
	handler *Handler
}

// NewDispatcher returns a dispatcher over the handler.
func NewDispatcher(h *Handler) *Dispatcher {
	return &Dispatcher{handler: h}
}

// Run consumes updates until the channel closes or the context is
// cancelled, then waits for in-flight handlers to finish.
func (d *Dispatcher) Run(ctx context.Context, updates <-chan Update) {
	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case up, ok := <-updates:
			if !ok {
				return
			}
			wg.Add(1)
			go func(u Update) {
				defer wg.Done()
				d.handler.Handle(ctx, u)
			}(up)
		}
	}
}
