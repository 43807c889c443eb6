// Package ws is the connection gateway: it authenticates websocket clients,
// registers them with the hub and shuttles frames in both directions.
package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/arcade-arena/internal/apperr"
	"github.com/DoyleJ11/arcade-arena/internal/auth"
	"github.com/DoyleJ11/arcade-arena/internal/hub"
	"github.com/DoyleJ11/arcade-arena/internal/profile"
	"github.com/DoyleJ11/arcade-arena/internal/types"
)

const (
	readLimit     = 4 << 10
	writeTimeout  = 3 * time.Second
	pingInterval  = 30 * time.Second
	lookupTimeout = 2 * time.Second
)

type Deps struct {
	Hub      *hub.Hub
	Auth     *auth.Verifier
	Profiles profile.Store
	// OriginPatterns are passed to websocket.AcceptOptions; empty means same
	// origin only.
	OriginPatterns []string
	Logger         *zap.Logger
}

func Handler(d Deps) http.HandlerFunc {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("ws")

	return func(w http.ResponseWriter, r *http.Request) {
		id, err := d.Auth.Authenticate(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		lookupCtx, cancelLookup := context.WithTimeout(r.Context(), lookupTimeout)
		name, err := profile.Resolve(lookupCtx, d.Profiles, id.UserID, id.Name)
		cancelLookup()
		if err != nil {
			log.Warn("display name lookup failed", zap.String("user", id.UserID), zap.Error(err))
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: d.OriginPatterns,
		})
		if err != nil {
			log.Debug("accept failed", zap.Error(err))
			return
		}
		defer conn.CloseNow()
		conn.SetReadLimit(readLimit)

		c := hub.NewConn(uuid.NewString(), id.UserID, name, hub.DefaultOutboxSize)
		if !d.Hub.Post(hub.Connect{Conn: c}) {
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Decode errors are answered here; only the hub writes to Outbox.
		local := make(chan types.ServerMessage, 8)
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			writeLoop(ctx, cancel, conn, c.Outbox, local)
		}()
		go pingLoop(ctx, cancel, conn)

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					if !errors.Is(err, context.Canceled) {
						log.Debug("read failed", zap.String("conn", c.ID), zap.Error(err))
					}
				}
				break
			}

			msg, err := types.Decode(data)
			if err != nil {
				select {
				case local <- types.NewError(apperr.Code(err), err.Error()):
				default:
				}
				continue
			}
			if !d.Hub.Post(hub.FromClient{ConnID: c.ID, Msg: msg}) {
				break
			}
		}

		d.Hub.Post(hub.Disconnect{ConnID: c.ID})
		select {
		case <-writerDone:
		case <-d.Hub.Done():
		}
		conn.Close(websocket.StatusNormalClosure, "bye")
	}
}

// writeLoop forwards messages until the hub closes outbox. A failed write
// cancels ctx so the reader stops; the loop keeps draining so the hub never
// sees a full outbox from a dead socket.
func writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, outbox <-chan types.ServerMessage, local <-chan types.ServerMessage) {
	write := func(msg types.ServerMessage) {
		if ctx.Err() != nil {
			return
		}
		wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
		defer wcancel()
		if err := wsjson.Write(wctx, conn, msg); err != nil {
			cancel()
		}
	}

	for {
		select {
		case msg, ok := <-outbox:
			if !ok {
				cancel()
				return
			}
			write(msg)
		case msg := <-local:
			write(msg)
		}
	}
}

func pingLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn) {
	t := time.NewTicker(pingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, pcancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pctx)
			pcancel()
			if err != nil {
				cancel()
				return
			}
		}
	}
}
