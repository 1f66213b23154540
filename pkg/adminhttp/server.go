// Package adminhttp exposes the relay's Admin hooks as a small JSON HTTP
// surface, for operators who prefer a web panel over the console. Built
// on fasthttp, the lightweight HTTP stack used elsewhere in the example
// corpus for admin-style surfaces.
package adminhttp

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/odyssey-relay/server/pkg/relay"
	"github.com/odyssey-relay/server/pkg/wire"
)

// Server wires fasthttp request handling to an Admin instance.
type Server struct {
	admin *relay.Admin
	log   *zap.Logger
}

func New(admin *relay.Admin, log *zap.Logger) *Server {
	return &Server{admin: admin, log: log}
}

// ListenAndServe blocks serving the admin HTTP surface on addr.
func (s *Server) ListenAndServe(addr string) error {
	return fasthttp.ListenAndServe(addr, s.handle)
}

func (s *Server) handle(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case "/status":
		s.handleStatus(ctx)
	case "/players":
		s.handlePlayers(ctx)
	case "/kick":
		s.handleKick(ctx)
	case "/ban":
		s.handleBan(ctx)
	case "/ban_ip":
		s.handleBanIP(ctx)
	case "/send_chat":
		s.handleSendChat(ctx)
	case "/crash":
		s.handleCrash(ctx)
	case "/reset_shines":
		s.handleResetShines(ctx)
	case "/change_stage":
		s.handleChangeStage(ctx)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

type statusResponse struct {
	Players int `json:"players"`
	Max     int `json:"max_players"`
}

func (s *Server) handleStatus(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, statusResponse{Players: s.admin.PlayerCount(), Max: s.admin.MaxPlayers()})
}

type playerResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handlePlayers(ctx *fasthttp.RequestCtx) {
	players := s.admin.List()
	out := make([]playerResponse, 0, len(players))
	for _, p := range players {
		out = append(out, playerResponse{ID: p.ID.String(), Name: p.Name.String()})
	}
	writeJSON(ctx, out)
}

func (s *Server) handleKick(ctx *fasthttp.RequestCtx) {
	id, ok := parseIDArg(ctx)
	if !ok {
		return
	}
	if err := s.admin.Kick(id); err != nil {
		writeError(ctx, fasthttp.StatusNotFound, err.Error())
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func (s *Server) handleBan(ctx *fasthttp.RequestCtx) {
	id, ok := parseIDArg(ctx)
	if !ok {
		return
	}
	s.admin.Ban(id)
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func (s *Server) handleBanIP(ctx *fasthttp.RequestCtx) {
	ip := string(ctx.QueryArgs().Peek("ip"))
	if ip == "" {
		writeError(ctx, fasthttp.StatusBadRequest, "missing ip query parameter")
		return
	}
	s.admin.BanIP(ip)
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func (s *Server) handleSendChat(ctx *fasthttp.RequestCtx) {
	text := string(ctx.QueryArgs().Peek("text"))
	if text == "" {
		writeError(ctx, fasthttp.StatusBadRequest, "missing text query parameter")
		return
	}
	s.admin.SendChat(text)
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func (s *Server) handleCrash(ctx *fasthttp.RequestCtx) {
	id, ok := parseIDArg(ctx)
	if !ok {
		return
	}
	if err := s.admin.Crash(id); err != nil {
		writeError(ctx, fasthttp.StatusNotFound, err.Error())
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func (s *Server) handleResetShines(ctx *fasthttp.RequestCtx) {
	s.admin.ResetShines()
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func (s *Server) handleChangeStage(ctx *fasthttp.RequestCtx) {
	id, ok := parseIDArg(ctx)
	if !ok {
		return
	}
	stage := string(ctx.QueryArgs().Peek("stage"))
	if stage == "" {
		writeError(ctx, fasthttp.StatusBadRequest, "missing stage query parameter")
		return
	}
	idField := string(ctx.QueryArgs().Peek("stage_id"))
	scenario := byte(ctx.QueryArgs().GetUintOrZero("scenario"))
	sub := byte(ctx.QueryArgs().GetUintOrZero("sub_scenario"))
	if err := s.admin.ChangeStage(id, stage, idField, scenario, sub); err != nil {
		writeError(ctx, fasthttp.StatusNotFound, err.Error())
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func parseIDArg(ctx *fasthttp.RequestCtx) (wire.ID, bool) {
	raw := string(ctx.QueryArgs().Peek("id"))
	id, err := wire.ParseID(raw)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "invalid id: "+err.Error())
		return wire.ID{}, false
	}
	return id, true
}

func writeJSON(ctx *fasthttp.RequestCtx, v any) {
	ctx.SetContentType("application/json")
	if err := json.NewEncoder(ctx).Encode(v); err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
	}
}

func writeError(ctx *fasthttp.RequestCtx, code int, msg string) {
	ctx.SetStatusCode(code)
	ctx.SetContentType("application/json")
	_ = json.NewEncoder(ctx).Encode(map[string]string{"error": msg})
}
