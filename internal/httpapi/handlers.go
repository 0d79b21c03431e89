package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"github.com/DoyleJ11/duel-engine/internal/area"
	"github.com/DoyleJ11/duel-engine/internal/engine"
	"github.com/DoyleJ11/duel-engine/internal/hub"
	"github.com/DoyleJ11/duel-engine/internal/lobby"
	"github.com/DoyleJ11/duel-engine/internal/types"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	codeAreaNotFound = "AreaNotFound"
	codeUnavailable  = "Unavailable"
)

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

type createAreaRequest struct {
	Mode string `json:"mode"`
}

func CreateArea(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createAreaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, types.CodeBadJSON, "bad json")
			return
		}
		mode, err := engine.ParseMode(req.Mode)
		if err != nil {
			writeError(w, http.StatusBadRequest, types.ErrorCode(err), err.Error())
			return
		}

		var code string
		for {
			c, err := GenerateCode()
			if err != nil {
				writeError(w, http.StatusInternalServerError, types.CodeInternal, "failed to generate code")
				return
			}
			_, err = h.Create(c, mode)
			if errors.Is(err, hub.ErrAreaExists) {
				log.Debug("collision on code, regenerating", zap.String("code", c))
				continue
			}
			if err != nil {
				writeHubError(w, err)
				return
			}
			code = c
			break
		}

		writeJSON(w, http.StatusCreated, struct {
			Code string      `json:"code"`
			Mode engine.Mode `json:"mode"`
		}{Code: code, Mode: mode})
	}
}

func ListAreas(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := h.List()
		if err != nil {
			writeHubError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// DeleteArea stops the area and disconnects its clients.
func DeleteArea(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		existed, err := h.Remove(chi.URLParam(r, "code"))
		if err != nil {
			writeHubError(w, err)
			return
		}
		if !existed {
			writeError(w, http.StatusNotFound, codeAreaNotFound, "area not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// History serves the area's result ledger to read-only consumers.
func History(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb, ok := lookup(w, h, chi.URLParam(r, "code"))
		if !ok {
			return
		}
		reply := make(chan []area.GameResult, 1)
		if !lb.Send(lobby.GetHistory{Reply: reply}) {
			writeError(w, http.StatusNotFound, codeAreaNotFound, "area closed")
			return
		}
		select {
		case history := <-reply:
			writeJSON(w, http.StatusOK, history)
		case <-lb.Done():
			writeError(w, http.StatusNotFound, codeAreaNotFound, "area closed")
		}
	}
}

// Snapshot serves the observer projection of an area.
func Snapshot(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb, ok := lookup(w, h, chi.URLParam(r, "code"))
		if !ok {
			return
		}
		reply := make(chan area.Snapshot, 1)
		if !lb.Send(lobby.GetSnapshot{Viewer: engine.ViewerObserver, Reply: reply}) {
			writeError(w, http.StatusNotFound, codeAreaNotFound, "area closed")
			return
		}
		select {
		case snap := <-reply:
			writeJSON(w, http.StatusOK, snap)
		case <-lb.Done():
			writeError(w, http.StatusNotFound, codeAreaNotFound, "area closed")
		}
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// lookup writes the error response itself when it returns false.
func lookup(w http.ResponseWriter, h *hub.Hub, code string) (*lobby.Lobby, bool) {
	lb, err := h.Get(code)
	if err != nil {
		writeHubError(w, err)
		return nil, false
	}
	if lb == nil {
		writeError(w, http.StatusNotFound, codeAreaNotFound, "area not found")
		return nil, false
	}
	return lb, true
}

func writeHubError(w http.ResponseWriter, err error) {
	if errors.Is(err, hub.ErrClosed) {
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, "server is shutting down")
		return
	}
	writeError(w, http.StatusInternalServerError, types.ErrorCode(err), err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, types.ErrorBody{Code: code, Message: msg})
}
