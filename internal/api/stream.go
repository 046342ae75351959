package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/signalsfoundry/wsn-simulator/core"
	"github.com/signalsfoundry/wsn-simulator/internal/logging"
	"github.com/signalsfoundry/wsn-simulator/model"
	"github.com/signalsfoundry/wsn-simulator/timectrl"
)

const (
	streamWriteTimeout = 5 * time.Second
	// maxStreamInterval bounds the pause a client may request between rounds.
	maxStreamInterval = 2 * time.Second
)

// streamSimulation runs one simulation configured from the query string and
// pushes a "round" frame after every round, then a single "result" frame
// carrying the stored run's summary. An interval query parameter (a Go
// duration such as "250ms") plays rounds back in real time. The run is
// cancelled if the client goes away or a write fails.
func (s *Server) streamSimulation(c *gin.Context) {
	query := c.Request.URL.Query()
	req, err := simulationRequestFromQuery(query)
	if err != nil {
		writeError(c, err)
		return
	}
	pacer, err := pacerFromQuery(query.Get("interval"))
	if err != nil {
		writeError(c, err)
		return
	}
	cfg, err := req.Resolve(s.defaults)
	if err != nil {
		writeError(c, err)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		requestLogger(c).Warn(c.Request.Context(), "websocket upgrade failed", logging.Err(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Drain inbound frames so close messages are processed; any read
	// error means the client is gone.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	log := requestLogger(c)
	id := logging.NewID()

	var writeErr error
	send := func(msg StreamMessage) {
		if writeErr != nil {
			return
		}
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if writeErr = conn.WriteJSON(msg); writeErr != nil {
			cancel()
		}
	}

	onRound := func(p model.Protocol, m model.RoundMetrics) {
		send(StreamMessage{Type: MessageRound, RunID: id, Protocol: p, Round: &m})
	}

	rec, err := s.runAndStore(ctx, id, cfg, log, core.WithRoundListener(onRound), core.WithPacer(pacer))
	if err != nil {
		log.Warn(ctx, "streamed simulation aborted", logging.Err(err))
		send(StreamMessage{Type: MessageError, RunID: id, Protocol: cfg.Protocol, Error: err.Error()})
		return
	}

	summary := rec.Summary()
	send(StreamMessage{Type: MessageResult, RunID: id, Protocol: cfg.Protocol, Summary: &summary})
	if writeErr == nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run complete"),
			time.Now().Add(streamWriteTimeout))
	}
}

func pacerFromQuery(raw string) (*timectrl.Pacer, error) {
	if raw == "" {
		return timectrl.NewPacer(0, timectrl.Accelerated), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: interval: %v", ErrBadRequest, err)
	}
	if d < 0 || d > maxStreamInterval {
		return nil, fmt.Errorf("%w: interval must be in [0, %s], got %s", ErrBadRequest, maxStreamInterval, d)
	}
	return timectrl.NewPacer(d, timectrl.RealTime), nil
}
