package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/domain"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/infra/http/middleware"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/realtime"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	defaultSessionCheck = 10 * time.Second
)

type Subscriber interface {
	Subscribe(accountID string) *realtime.Subscription
	Unsubscribe(sub *realtime.Subscription)
}

// RealtimeHandler entrega eventos de transação por websocket.
// O canal é sempre o da conta dona do token; o cliente não escolhe em qual entra.
// O token é revalidado periodicamente: um login novo ou logout derruba o socket antigo.
type RealtimeHandler struct {
	subscriber   Subscriber
	sessions     middleware.SessionResolver
	sessionCheck time.Duration
	upgrader     websocket.Upgrader
}

type RealtimeOption func(*RealtimeHandler)

// WithSessionCheck muda o intervalo de revalidação do token.
func WithSessionCheck(d time.Duration) RealtimeOption {
	return func(h *RealtimeHandler) {
		if d > 0 {
			h.sessionCheck = d
		}
	}
}

func NewRealtimeHandler(subscriber Subscriber, sessions middleware.SessionResolver, opts ...RealtimeOption) *RealtimeHandler {
	h := &RealtimeHandler{
		subscriber:   subscriber,
		sessions:     sessions,
		sessionCheck: defaultSessionCheck,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// a autorização é o token da URL, não a origem
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// joinMessage é o formato legado {"accountId": "..."}; só é aceito se bater com a sessão.
type joinMessage struct {
	AccountID string `json:"accountId"`
}

type controlEvent struct {
	Name string            `json:"event"`
	Data map[string]string `json:"data"`
}

func (h *RealtimeHandler) Serve(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Sessão inválida ou expirada")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade já respondeu com o erro HTTP
		log.Warn().Err(err).Msg("Falha no upgrade do websocket")
		return
	}
	defer conn.Close()

	sub := h.subscriber.Subscribe(accountID)
	defer h.subscriber.Unsubscribe(sub)
	log.Debug().Str("account_id", accountID).Msg("Websocket conectado")

	control := make(chan controlEvent, 4)
	done := make(chan struct{})
	go h.readLoop(conn, accountID, control, done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	sessionTicker := time.NewTicker(h.sessionCheck)
	defer sessionTicker.Stop()
	token := chi.URLParam(r, "token")

	_ = conn.WriteJSON(controlEvent{Name: "joined", Data: map[string]string{"accountId": accountID}})
	for {
		select {
		case <-done:
			return
		case ev, ok := <-sub.C:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case ev := <-control:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-sessionTicker.C:
			if h.sessionStillValid(token, accountID) {
				continue
			}
			log.Info().Str("account_id", accountID).Msg("Sessão substituída, encerrando websocket")
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteJSON(controlEvent{Name: "error", Data: map[string]string{"message": "session expired"}})
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session expired"), time.Now().Add(writeWait))
			return
		}
	}
}

// sessionStillValid só derruba o socket quando o token deixou de ser da conta.
// Falha de storage não encerra: a próxima checagem tenta de novo.
func (h *RealtimeHandler) sessionStillValid(token, accountID string) bool {
	if h.sessions == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	owner, err := h.sessions.Authenticate(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			return false
		}
		log.Error().Err(err).Str("account_id", accountID).Msg("Falha ao revalidar sessão do websocket")
		return true
	}
	return owner == accountID
}

// readLoop só existe para processar pong/close e mensagens de join legadas.
func (h *RealtimeHandler) readLoop(conn *websocket.Conn, accountID string, control chan<- controlEvent, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg joinMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("account_id", accountID).Msg("Websocket encerrado")
			}
			return
		}
		ev := controlEvent{Name: "joined", Data: map[string]string{"accountId": accountID}}
		if msg.AccountID != "" && msg.AccountID != accountID {
			log.Warn().Str("account_id", accountID).Str("requested", msg.AccountID).Msg("Join para canal de outra conta recusado")
			ev = controlEvent{Name: "error", Data: map[string]string{"message": "cannot join another account's channel"}}
		}
		select {
		case control <- ev:
		default:
		}
	}
}
