package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var ErrClosed = errors.New("websocket session closed")

// Session - WebSocket соединение с отдельными горутинами чтения и записи.
type Session struct {
	conn         *websocket.Conn
	inChan       chan []byte
	outChan      chan []byte
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	closeOnce    sync.Once
	writeWait    time.Duration
	pongWait     time.Duration
	pingInterval time.Duration
	readLimit    int64
}

// Option функция настройки сессии.
type Option func(*Session)

// WithWriteTimeout устанавливает таймаут записи.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Session) { s.writeWait = d }
}

// WithPongTimeout устанавливает таймаут pong и интервал ping (90% от pong).
func WithPongTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.pongWait = d
			s.pingInterval = time.Duration(float64(d) * 0.9)
		}
	}
}

// WithReadLimit ограничивает размер входящего сообщения.
func WithReadLimit(n int64) Option {
	return func(s *Session) { s.readLimit = n }
}

// Serve запускает обработку уже установленного соединения.
func Serve(ctx context.Context, conn *websocket.Conn, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		conn:         conn,
		inChan:       make(chan []byte),
		outChan:      make(chan []byte, 16),
		ctx:          ctx,
		cancel:       cancel,
		writeWait:    15 * time.Second,
		pongWait:     30 * time.Second,
		pingInterval: (30 * time.Second * 9) / 10,
		readLimit:    64 << 10,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.conn.SetReadLimit(s.readLimit)

	s.wg.Add(2)
	go s.readPump()
	go s.writePump()

	return s
}

// Dial подключается к серверу и возвращает сессию.
func Dial(ctx context.Context, url string, header http.Header, opts ...Option) (*Session, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return Serve(ctx, conn, opts...), nil
}

// Messages возвращает канал входящих сообщений. Закрывается при разрыве соединения.
func (s *Session) Messages() <-chan []byte {
	return s.inChan
}

// Done закрывается после завершения сессии.
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Send ставит сообщение в очередь на отправку.
func (s *Session) Send(msg []byte) error {
	if s.ctx.Err() != nil {
		return ErrClosed
	}
	select {
	case <-s.ctx.Done():
		return ErrClosed
	case s.outChan <- msg:
		return nil
	}
}

// SendJSON сериализует v и отправляет текстовым сообщением.
func (s *Session) SendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Send(data)
}

// Close завершает сессию.
func (s *Session) Close() {
	s.closeOnce.Do(s.cancel)
}

// Wait ждет остановки горутин чтения и записи.
func (s *Session) Wait() {
	s.wg.Wait()
}

// readPump обрабатывает входящие сообщения.
func (s *Session) readPump() {
	defer s.wg.Done()
	defer close(s.inChan)
	defer s.Close()

	s.conn.SetReadDeadline(time.Now().Add(s.pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(s.pongWait))
		return nil
	})
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		select {
		case <-s.ctx.Done():
			return
		case s.inChan <- msg:
		}
	}
}

// writePump отправляет исходящие сообщения и ping.
func (s *Session) writePump() {
	defer s.wg.Done()
	// Закрытие соединения разблокирует ReadMessage в readPump
	defer s.conn.Close()
	defer s.Close()

	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			s.flush()
			_ = s.writeMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-s.outChan:
			if err := s.writeMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := s.writeMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// flush дописывает сообщения, оставшиеся в очереди при закрытии.
func (s *Session) flush() {
	for {
		select {
		case msg := <-s.outChan:
			if err := s.writeMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

// writeMessage отправляет сообщение с таймаутом.
func (s *Session) writeMessage(msgType int, data []byte) error {
	s.conn.SetWriteDeadline(time.Now().Add(s.writeWait))
	return s.conn.WriteMessage(msgType, data)
}
