package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Jasonwill2004/ScribeAI/internal/models"
	"github.com/Jasonwill2004/ScribeAI/internal/pipeline"
	"github.com/Jasonwill2004/ScribeAI/pkg/protocol"
)

func (s *implServer) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn(r.Context(), "Websocket upgrade failed: %v", err)
		return
	}
	ws.SetReadLimit(s.cfg.ReadLimitBytes)

	c := newConn(uuid.NewString(), ws, s.logger)
	s.register(c)
	defer s.unregister(c)

	go c.writePump()
	s.readLoop(r.Context(), c)
}

func (s *implServer) register(c *conn) {
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
	s.metrics.ActiveConnections.Inc()
	s.logger.Info(context.Background(), "Client connected conn=%s", c.id)
}

func (s *implServer) unregister(c *conn) {
	c.close(websocket.CloseNormalClosure, "")
	s.mu.Lock()
	delete(s.conns, c)
	s.unbindAll(c)
	s.mu.Unlock()
	s.metrics.ActiveConnections.Dec()
	s.logger.Info(context.Background(), "Client disconnected conn=%s", c.id)
}

// readLoop handles the frames of one connection strictly in arrival order.
// Only read errors end the loop; a frame that does not decode is reported and skipped.
func (s *implServer) readLoop(ctx context.Context, c *conn) {
	n := sessionNotifier{s: s, origin: c}
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug(ctx, "conn=%s read ended: %v", c.id, err)
			}
			return
		}
		c.touch()

		var frame protocol.Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.logger.Warn(ctx, "conn=%s malformed frame: %v", c.id, err)
			s.metrics.RecordEvent("malformed", false)
			n.Error("", fmt.Errorf("%w: malformed frame", models.ErrValidation))
			continue
		}

		ack, err := s.dispatch(ctx, frame, n)
		s.metrics.RecordEvent(frame.Event, err == nil)
		if err != nil {
			s.logger.Warn(ctx, "conn=%s %s failed: %v", c.id, frame.Event, err)
			ack = protocol.AckPayload{Success: false, Error: err.Error()}
			n.Error(sessionOf(frame), err)
		} else {
			s.bind(ack.SessionID, c)
		}

		if frame.ID != nil {
			ackFrame, encErr := protocol.NewAck(*frame.ID, ack)
			if encErr != nil {
				s.logger.Error(ctx, "conn=%s encode ack: %v", c.id, encErr)
				continue
			}
			c.enqueue(ackFrame)
		}
	}
}

// dispatch validates the payload of frame and calls the pipeline.
func (s *implServer) dispatch(ctx context.Context, frame protocol.Frame, n pipeline.Notifier) (protocol.AckPayload, error) {
	now := time.Now()

	switch frame.Event {
	case protocol.EventStart:
		var p protocol.StartPayload
		if err := decode(frame, &p); err != nil {
			return protocol.AckPayload{}, err
		}
		sess, err := s.pipeline.Start(ctx, pipeline.StartRequest{UserID: p.UserID, Title: p.Title}, n)
		if err != nil {
			return protocol.AckPayload{}, err
		}
		return protocol.AckPayload{Success: true, SessionID: sess.ID, Status: string(sess.State), Timestamp: protocol.Millis(sess.StartedAt)}, nil

	case protocol.EventChunk:
		var p protocol.ChunkPayload
		if err := decode(frame, &p); err != nil {
			return protocol.AckPayload{}, err
		}
		if p.ChunkIndex == nil {
			return protocol.AckPayload{}, fmt.Errorf("%w: chunkIndex is required", models.ErrValidation)
		}
		chunk, err := s.pipeline.ChunkArrived(ctx, pipeline.ChunkRequest{
			SessionID:  p.SessionID,
			ChunkIndex: *p.ChunkIndex,
			Data:       p.AudioData,
			Speaker:    p.Speaker,
		}, n)
		if err != nil {
			return protocol.AckPayload{}, err
		}
		idx := chunk.ChunkIndex
		return protocol.AckPayload{Success: true, ChunkID: chunk.ID, ChunkIndex: &idx, SessionID: chunk.SessionID}, nil

	case protocol.EventPause, protocol.EventResume, protocol.EventEnd:
		var p protocol.SessionPayload
		if err := decode(frame, &p); err != nil {
			return protocol.AckPayload{}, err
		}
		op := s.pipeline.Pause
		switch frame.Event {
		case protocol.EventResume:
			op = s.pipeline.Resume
		case protocol.EventEnd:
			op = s.pipeline.End
		}
		sess, err := op(ctx, p.SessionID, n)
		if err != nil {
			return protocol.AckPayload{}, err
		}
		return protocol.AckPayload{Success: true, SessionID: sess.ID, Status: string(sess.State), Timestamp: protocol.Millis(now)}, nil

	case protocol.EventHeartbeat:
		var p protocol.HeartbeatPayload
		if len(frame.Data) > 0 {
			if err := decode(frame, &p); err != nil {
				return protocol.AckPayload{}, err
			}
		}
		return protocol.AckPayload{Success: true, SessionID: strings.TrimSpace(p.SessionID), ServerTime: protocol.Millis(now)}, nil

	default:
		return protocol.AckPayload{}, fmt.Errorf("%w: unknown event %q", models.ErrValidation, frame.Event)
	}
}

func decode(frame protocol.Frame, v any) error {
	if len(frame.Data) == 0 {
		return fmt.Errorf("%w: %s payload is required", models.ErrValidation, frame.Event)
	}
	if err := json.Unmarshal(frame.Data, v); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return fmt.Errorf("%w: malformed %s payload", models.ErrValidation, frame.Event)
		}
		return fmt.Errorf("%w: %s payload: %v", models.ErrValidation, frame.Event, err)
	}
	return nil
}

// sessionOf extracts the session id of a request for error notifications, if any.
func sessionOf(frame protocol.Frame) string {
	var p struct {
		SessionID string `json:"sessionId"`
	}
	if len(frame.Data) > 0 && json.Unmarshal(frame.Data, &p) == nil {
		return strings.TrimSpace(p.SessionID)
	}
	return ""
}
