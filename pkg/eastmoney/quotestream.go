package eastmoney

import (
	"encoding/json"
	"fmt"
	"time"

	"signalcore/internal/model"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// QuoteStream maintains a WebSocket subscription to the vendor's realtime
// quote push channel and routes ticks to a handler.
type QuoteStream struct {
	url     string
	symbols []string
	conn    *websocket.Conn
	handler func(model.RealtimeQuote)
	logger  *zap.Logger
}

// quoteMessage is the push payload for a batch of ticks.
type quoteMessage struct {
	Topic string `json:"topic"`
	Data  []struct {
		Symbol        string  `json:"symbol"`
		Price         float64 `json:"price"`
		PreviousClose float64 `json:"prevClose"`
		Ts            int64   `json:"ts"` // milliseconds since epoch
	} `json:"data"`
}

func NewQuoteStream(url string, symbols []string, logger *zap.Logger) *QuoteStream {
	return &QuoteStream{
		url:     url,
		symbols: symbols,
		logger:  logger,
	}
}

// SetTickHandler sets the function receiving each parsed quote.
func (s *QuoteStream) SetTickHandler(h func(model.RealtimeQuote)) {
	s.handler = h
}

// Connect establishes the WebSocket connection and subscribes to quote
// topics for the configured symbols. It does not start the listener.
func (s *QuoteStream) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	if err != nil {
		s.logger.Error("failed to connect quote stream", zap.String("url", s.url), zap.Error(err))
		return err
	}
	s.conn = conn
	s.logger.Info("quote stream connected", zap.String("url", s.url), zap.Int("symbols", len(s.symbols)))

	return s.subscribe(conn)
}

// Listen reads quote pushes until the connection breaks, then reconnects and
// resubscribes indefinitely.
func (s *QuoteStream) Listen() {
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			s.logger.Error("quote stream read error", zap.Error(err))

			for {
				time.Sleep(3 * time.Second)
				if err := s.reconnectAndResubscribe(); err != nil {
					s.logger.Warn("retrying quote stream reconnect")
					continue
				}
				s.logger.Info("quote stream reconnected")
				break
			}
			continue
		}

		s.dispatch(msg)
	}
}

func (s *QuoteStream) dispatch(msg []byte) {
	var parsed quoteMessage
	if err := json.Unmarshal(msg, &parsed); err != nil {
		s.logger.Warn("failed to parse quote push", zap.Error(err))
		return
	}
	if parsed.Topic != "quote" || s.handler == nil {
		return // subscription acks and heartbeats
	}

	for _, d := range parsed.Data {
		if d.Symbol == "" {
			continue
		}
		s.handler(model.RealtimeQuote{
			Symbol:        d.Symbol,
			Price:         d.Price,
			PreviousClose: d.PreviousClose,
			ObservedAt:    time.UnixMilli(d.Ts),
		})
	}
}

func (s *QuoteStream) subscribe(conn *websocket.Conn) error {
	args := make([]string, 0, len(s.symbols))
	for _, sym := range s.symbols {
		args = append(args, "quote."+sym)
	}

	subMsg := map[string]interface{}{
		"op":   "subscribe",
		"args": args,
	}
	if err := conn.WriteJSON(subMsg); err != nil {
		return fmt.Errorf("quote stream subscribe failed: %w", err)
	}
	return nil
}

func (s *QuoteStream) reconnectAndResubscribe() error {
	newConn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	if err != nil {
		return err
	}

	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.conn = newConn

	return s.subscribe(newConn)
}
