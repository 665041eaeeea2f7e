package wsrelay

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"taash/internal/app"
	"taash/internal/config"
	"taash/internal/domain"
	"taash/internal/roomcode"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum envelope size allowed from a peer. Snapshots flow the other
	// way; peer uploads are single actions.
	maxMessageSize = 4096
)

// Server exposes the hub over HTTP: room provisioning plus the websocket
// endpoint each peer attaches to.
type Server struct {
	hub      *Hub
	tokens   *app.TokenService
	upgrader websocket.Upgrader
}

func NewServer(hub *Hub, tokens *app.TokenService) *Server {
	allowed := config.GetRelayAllowedOrigins()
	return &Server{
		hub:    hub,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowed) == 0 {
					return true
				}
				for _, a := range allowed {
					if a == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

// Routes registers the relay endpoints on the given mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/rooms", s.handleRooms)
	mux.HandleFunc("/ws", s.handleWebsocket)
}

type createRoomRequest struct {
	Variant  string `json:"variant"`
	Password bool   `json:"has_password"`
}

type createRoomResponse struct {
	RoomCode     string `json:"room_code"`
	PlayerID     string `json:"player_id"`
	SessionToken string `json:"session_token"`
}

// handleRooms lists open rooms on GET and provisions a room on POST.
func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rooms, err := s.hub.ListOpen()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rooms)

	case http.MethodPost:
		var req createRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed request", http.StatusBadRequest)
			return
		}
		variant := domain.Variant(req.Variant)
		if variant != domain.VariantRung && variant != domain.VariantThulla {
			http.Error(w, "unknown variant", http.StatusBadRequest)
			return
		}

		code, err := roomcode.New(config.GetRoomCodeLength())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if err := s.hub.CreateRoom(code, variant, req.Password); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}

		playerID := app.NewPlayerID()
		token, err := s.tokens.GenerateToken(playerID, code)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(createRoomResponse{
			RoomCode:     code,
			PlayerID:     playerID,
			SessionToken: token,
		})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleWebsocket attaches one peer connection to a room. The session token
// binds the connection to the peer identity and room it was minted for.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	token := r.URL.Query().Get("token")
	playerID, code, err := s.tokens.VerifyToken(token)
	if err != nil {
		http.Error(w, "invalid session token", http.StatusUnauthorized)
		return
	}
	if _, ok := s.hub.Resolve(code); !ok {
		// First connection creates nothing here; rooms come from POST /rooms.
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if _, ok := err.(websocket.HandshakeError); !ok {
			log.Println(err)
		}
		return
	}

	send := make(chan []byte, 64)
	if err := s.hub.Join(code, playerID, func(data []byte) {
		select {
		case send <- data:
		default:
			// Slow consumer; it will resync from the next snapshot.
			log.Printf("wsrelay: dropping envelope for slow peer %s", playerID)
		}
	}); err != nil {
		log.Printf("wsrelay: join %s/%s: %v", code, playerID, err)
		ws.Close()
		return
	}

	go s.writePump(ws, send)
	s.readPump(ws, code, playerID)
}

func (s *Server) readPump(ws *websocket.Conn, code, playerID string) {
	defer func() {
		ws.Close()
		s.hub.Leave(code, playerID)
	}()

	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("wsrelay: read from %s: %v", playerID, err)
			}
			return
		}
		if err := s.hub.Route(code, playerID, message); err != nil {
			log.Printf("wsrelay: %v", err)
		}
	}
}

func (s *Server) writePump(ws *websocket.Conn, send <-chan []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case data, ok := <-send:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
