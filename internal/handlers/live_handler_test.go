package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/unicollab/backend/internal/screens"
)

type frame struct {
	Type    string          `json:"type"`
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

func dial(t *testing.T, srv *httptest.Server, path, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path + "?access_token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial %s: %v (status %d)", path, err, status)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// awaitFrame reads frames until match accepts one or the deadline passes.
func awaitFrame(t *testing.T, conn *websocket.Conn, match func(frame) bool) frame {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("no matching frame: %v", err)
		}
		if match(f) {
			return f
		}
	}
}

func TestGroupMessagesSocket(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.signup(t, "ada@uni.edu")
	group := s.createGroup(t, token, "Study hall")
	srv := httptest.NewServer(s.e)
	defer srv.Close()

	conn := dial(t, srv, "/api/ws/groups/"+group.ID+"/messages", token)

	first := awaitFrame(t, conn, func(f frame) bool { return f.Type == "group_messages" })
	var st screens.LiveState[json.RawMessage]
	if err := json.Unmarshal(first.Data, &st); err != nil {
		t.Fatalf("decode state: %v", err)
	}

	expectStatus(t, s.do(t, http.MethodPost, "/api/groups/"+group.ID+"/messages", token, echo.Map{"text": "hello"}), http.StatusCreated)

	awaitFrame(t, conn, func(f frame) bool {
		var st screens.LiveState[struct {
			Text string `json:"text"`
		}]
		if err := json.Unmarshal(f.Data, &st); err != nil {
			return false
		}
		return len(st.Items) == 1 && st.Items[0].Text == "hello"
	})
}

func TestGroupsSocket(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.signup(t, "owner@uni.edu")
	srv := httptest.NewServer(s.e)
	defer srv.Close()

	conn := dial(t, srv, "/api/ws/groups", token)

	statusOf := func(f frame) screens.GroupsStatus {
		var p groupsPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			t.Fatalf("decode groups payload: %v", err)
		}
		return p.Status
	}

	awaitFrame(t, conn, func(f frame) bool {
		return f.Type == "groups" && statusOf(f).Phase == screens.PhaseEmpty
	})

	if err := conn.WriteJSON(echo.Map{"type": "createGroup", "group": echo.Map{"name": "Databases"}}); err != nil {
		t.Fatalf("write command: %v", err)
	}
	// the notice and the refreshed list arrive in either order
	var notice string
	listed := false
	awaitFrame(t, conn, func(f frame) bool {
		switch f.Type {
		case "notice":
			if err := json.Unmarshal(f.Data, &notice); err != nil {
				t.Fatalf("decode notice: %v", err)
			}
		case "groups":
			st := statusOf(f)
			if st.Phase == screens.PhaseSuccess && len(st.Groups) == 1 {
				listed = true
			}
		}
		return notice != "" && listed
	})
	if notice != screens.MsgGroupCreated {
		t.Errorf("expected %q, got %q", screens.MsgGroupCreated, notice)
	}

	if err := conn.WriteJSON(echo.Map{"type": "search", "search": "zzz"}); err != nil {
		t.Fatalf("write command: %v", err)
	}
	awaitFrame(t, conn, func(f frame) bool {
		if f.Type != "groups" {
			return false
		}
		st := statusOf(f)
		return st.Phase == screens.PhaseEmpty && st.Message == screens.MsgNoSearchResults
	})

	if err := conn.WriteJSON(echo.Map{"type": "createGroup", "group": echo.Map{}}); err != nil {
		t.Fatalf("write command: %v", err)
	}
	awaitFrame(t, conn, func(f frame) bool { return f.Type == "error" })
}

func TestLiveSocketRejectsAnonymous(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/groups"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", resp)
	}
}

func TestGroupSocketsRejectOutsiders(t *testing.T) {
	s := newTestServer(t)
	owner, _ := s.signup(t, "owner@uni.edu")
	outsider, _ := s.signup(t, "outsider@uni.edu")
	group := s.createGroup(t, owner, "Compilers")
	srv := httptest.NewServer(s.e)
	defer srv.Close()

	for _, view := range []string{"messages", "tournaments"} {
		t.Run(view, func(t *testing.T) {
			url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/groups/" + group.ID + "/" + view + "?access_token=" + outsider
			_, resp, err := websocket.DefaultDialer.Dial(url, nil)
			if err == nil {
				t.Fatal("expected dial to fail")
			}
			if resp == nil || resp.StatusCode != http.StatusForbidden {
				t.Errorf("expected 403, got %v", resp)
			}
		})
	}

	t.Run("details over the groups socket", func(t *testing.T) {
		conn := dial(t, srv, "/api/ws/groups", outsider)
		if err := conn.WriteJSON(echo.Map{"type": "openGroup", "id": group.ID}); err != nil {
			t.Fatalf("write command: %v", err)
		}
		awaitFrame(t, conn, func(f frame) bool {
			if f.Type != "groupDetails" {
				return false
			}
			var st screens.GroupDetailsState
			if err := json.Unmarshal(f.Data, &st); err != nil {
				t.Fatalf("decode details: %v", err)
			}
			if st.Group != nil {
				t.Fatalf("group leaked to outsider: %+v", st.Group)
			}
			return st.Phase == screens.PhaseError && st.Error == screens.MsgNotMember
		})
	})
}
