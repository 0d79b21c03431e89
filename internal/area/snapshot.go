package area

import "github.com/DoyleJ11/duel-engine/internal/engine"

// Snapshot is the outbound picture of an area for one recipient class.
type Snapshot struct {
	Area    string                          `json:"area"`
	Mode    engine.Mode                     `json:"mode"`
	GameID  string                          `json:"game_id,omitempty"`
	Status  engine.Status                   `json:"status"`
	Winner  engine.Seat                     `json:"winner,omitempty"`
	Players map[engine.Seat]engine.PlayerID `json:"players,omitempty"`
	History []GameResult                    `json:"history"`
	View    *engine.RedactedView            `json:"view,omitempty"`
}

// ViewerOf maps a player to the recipient class they belong to in the current game.
func (a *Area) ViewerOf(player engine.PlayerID) engine.Viewer {
	if a.game == nil {
		return engine.ViewerObserver
	}
	if seat, ok := a.game.SeatOf(player); ok {
		return engine.SeatViewer(seat)
	}
	return engine.ViewerObserver
}

func (a *Area) Snapshot(viewer engine.Viewer) Snapshot {
	snap := Snapshot{
		Area:    a.id,
		Mode:    a.mode,
		Status:  engine.StatusWaitingToStart,
		History: a.History(),
	}
	if a.game == nil {
		return snap
	}

	snap.GameID = a.game.ID
	snap.Status = a.game.Status
	snap.Winner = a.game.Winner
	snap.Players = make(map[engine.Seat]engine.PlayerID, len(a.game.Players))
	for seat, p := range a.game.Players {
		snap.Players[seat] = p
	}
	view := engine.ProjectView(a.game.State, viewer)
	snap.View = &view
	return snap
}
