package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/unicollab/backend/internal/docstore"
	"github.com/unicollab/backend/internal/middleware"
	"github.com/unicollab/backend/internal/models"
	"github.com/unicollab/backend/internal/repositories"
	"github.com/unicollab/backend/internal/screens"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// liveMessage is every server-to-client frame.
type liveMessage struct {
	Type    string `json:"type"`
	Version int    `json:"version,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// clientCommand is a client-to-server frame on the groups socket.
type clientCommand struct {
	Type   string                     `json:"type"`
	Code   string                     `json:"code,omitempty"`
	ID     string                     `json:"id,omitempty"`
	Search string                     `json:"search,omitempty"`
	Group  *models.CreateGroupRequest `json:"group,omitempty"`
}

type groupsPayload struct {
	State  screens.GroupsState  `json:"state"`
	Status screens.GroupsStatus `json:"status"`
}

// LiveHandler serves the realtime views over WebSocket. Each connection has
// one reader goroutine and writes only from the handler goroutine.
type LiveHandler struct {
	store       docstore.Store
	groups      repositories.GroupRepository
	chats       *repositories.DocChatRepository
	directChats *repositories.DocDirectChatRepository
	tournaments *repositories.DocTournamentRepository
}

// NewLiveHandler creates a new LiveHandler
func NewLiveHandler(store docstore.Store, groupRepo repositories.GroupRepository, chatRepo *repositories.DocChatRepository,
	directRepo *repositories.DocDirectChatRepository, tournamentRepo *repositories.DocTournamentRepository) *LiveHandler {
	return &LiveHandler{
		store:       store,
		groups:      groupRepo,
		chats:       chatRepo,
		directChats: directRepo,
		tournaments: tournamentRepo,
	}
}

// RegisterLiveRoutes registers the WebSocket routes
func (h *LiveHandler) RegisterLiveRoutes(g *echo.Group) {
	g.GET("/ws/groups", h.GroupsSocket)
	g.GET("/ws/groups/:id/messages", h.GroupMessagesSocket)
	g.GET("/ws/groups/:id/tournaments", h.TournamentsSocket)
	g.GET("/ws/chats/:peer", h.DirectMessagesSocket)
}

func (h *LiveHandler) GroupMessagesSocket(c echo.Context) error {
	if _, err := h.groups.RequireMember(c.Request().Context(), middleware.CallerFrom(c), c.Param("id")); err != nil {
		return httpError(err)
	}
	q, err := h.chats.MessagesQuery(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return serveLiveList(c, h.store, q, "group_messages", repositories.DecodeMessages)
}

func (h *LiveHandler) TournamentsSocket(c echo.Context) error {
	if _, err := h.groups.RequireMember(c.Request().Context(), middleware.CallerFrom(c), c.Param("id")); err != nil {
		return httpError(err)
	}
	q, err := h.tournaments.TournamentsQuery(c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return serveLiveList(c, h.store, q, "tournaments", repositories.DecodeTournaments)
}

func (h *LiveHandler) DirectMessagesSocket(c echo.Context) error {
	q, err := h.directChats.MessagesQuery(middleware.CallerFrom(c), c.Param("peer"))
	if err != nil {
		return httpError(err)
	}
	return serveLiveList(c, h.store, q, "direct_messages", repositories.DecodeMessages)
}

// GroupsSocket drives a groups list screen and a group details screen for
// the caller. Clients send commands and receive state snapshots and notices.
func (h *LiveHandler) GroupsSocket(c echo.Context) error {
	caller := middleware.CallerFrom(c)
	if _, err := caller.Require(); err != nil {
		return httpError(err)
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return nil
	}
	lc := &liveConn{ws: ws}
	defer lc.close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	list := screens.NewGroupsScreen(h.groups, caller)
	defer list.Close()
	details := screens.NewGroupDetailsScreen(h.groups, caller)
	defer details.Close()

	groupsCh, unsubGroups := list.State().Subscribe()
	defer unsubGroups()
	detailsCh, unsubDetails := details.State().Subscribe()
	defer unsubDetails()

	// echo recycles c once the handler returns, so the reader must not touch it.
	validator := c.Echo().Validator

	search := make(chan string, 1)
	replies := make(chan liveMessage, 8)
	reply := func(msg liveMessage) {
		select {
		case replies <- msg:
		default:
			slog.Warn("dropping websocket reply", "type", msg.Type)
		}
	}

	go list.Load(ctx)
	go lc.readLoop(cancel, func(cmd clientCommand) {
		switch cmd.Type {
		case "refresh":
			go list.Refresh(ctx)
		case "createGroup":
			if cmd.Group == nil {
				reply(liveMessage{Type: "error", Data: "group is required"})
				return
			}
			if err := validator.Validate(cmd.Group); err != nil {
				reply(liveMessage{Type: "error", Data: errorMessage(err)})
				return
			}
			req := *cmd.Group
			go list.CreateGroup(ctx, req)
		case "joinGroup":
			go list.JoinGroup(ctx, cmd.Code)
		case "openGroup":
			go details.Fetch(ctx, cmd.ID, false)
		case "refreshGroup":
			go details.Refresh(ctx)
		case "retryGroup":
			go details.Retry(ctx)
		case "search":
			select {
			case <-search:
			default:
			}
			search <- cmd.Search
		default:
			reply(liveMessage{Type: "error", Data: "unknown command " + cmd.Type})
		}
	})

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	var term string
	var latest screens.Snapshot[screens.GroupsState]
	sendGroups := func() error {
		return lc.write(liveMessage{
			Type:    "groups",
			Version: latest.Version,
			Data:    groupsPayload{State: latest.State, Status: latest.State.Status(term)},
		})
	}

	for {
		var err error
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			err = lc.ping()
		case snap, ok := <-groupsCh:
			if !ok {
				return nil
			}
			latest = snap
			err = sendGroups()
		case snap, ok := <-detailsCh:
			if !ok {
				return nil
			}
			err = lc.write(liveMessage{Type: "groupDetails", Version: snap.Version, Data: snap.State})
		case term = <-search:
			err = sendGroups()
		case notice := <-list.Events():
			err = lc.write(liveMessage{Type: "notice", Data: notice})
		case msg := <-replies:
			err = lc.write(msg)
		}
		if err != nil {
			slog.Debug("websocket write failed", "error", err)
			return nil
		}
	}
}

// serveLiveList streams every snapshot of a store query until either side goes away.
func serveLiveList[T any](c echo.Context, store docstore.Store, q docstore.Query, view string,
	decode func([]*docstore.Document) ([]T, error)) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "view", view, "error", err)
		return nil
	}
	lc := &liveConn{ws: ws}
	defer lc.close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	list, err := screens.OpenLiveList(ctx, store, q, view, decode)
	if err != nil {
		slog.Error("live list unavailable", "view", view, "error", err)
		_ = lc.write(liveMessage{Type: "error", Data: screens.UserMessage(err)})
		return nil
	}
	defer list.Close()

	snaps, unsubscribe := list.State().Subscribe()
	defer unsubscribe()

	go lc.readLoop(cancel, nil)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		var err error
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			err = lc.ping()
		case snap, ok := <-snaps:
			if !ok {
				return nil
			}
			err = lc.write(liveMessage{Type: view, Version: snap.Version, Data: snap.State})
		}
		if err != nil {
			slog.Debug("websocket write failed", "view", view, "error", err)
			return nil
		}
	}
}

type liveConn struct {
	ws *websocket.Conn
}

func (lc *liveConn) write(msg liveMessage) error {
	if err := lc.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return lc.ws.WriteJSON(msg)
}

func (lc *liveConn) ping() error {
	return lc.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (lc *liveConn) close() {
	_ = lc.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	lc.ws.Close()
}

// readLoop reads client frames until the connection fails, then calls cancel.
// Frames that are not valid commands are logged and skipped.
func (lc *liveConn) readLoop(cancel context.CancelFunc, handle func(clientCommand)) {
	defer cancel()
	lc.ws.SetReadLimit(maxMessageSize)
	_ = lc.ws.SetReadDeadline(time.Now().Add(pongWait))
	lc.ws.SetPongHandler(func(string) error {
		return lc.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := lc.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket closed", "error", err)
			}
			return
		}
		if handle == nil {
			continue
		}
		var cmd clientCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			slog.Debug("ignoring malformed websocket frame", "error", err)
			continue
		}
		handle(cmd)
	}
}

func errorMessage(err error) string {
	if he, ok := err.(*echo.HTTPError); ok {
		if msg, ok := he.Message.(string); ok {
			return msg
		}
	}
	return err.Error()
}
