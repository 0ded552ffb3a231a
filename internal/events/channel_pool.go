package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// ErrPoolClosed is returned by Get once the pool has been closed.
var ErrPoolClosed = errors.New("channel pool is closed")

// channel is the subset of *amqp.Channel used for publishing.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// ChannelPool hands out a fixed number of AMQP channels over one connection.
type ChannelPool struct {
	open     func() (channel, error)
	conn     io.Closer
	channels chan channel
	mu       sync.Mutex
	closed   bool
	logger   zerolog.Logger
}

// NewChannelPool dials url, declares exchange as a durable topic exchange and
// pre-creates size channels.
func NewChannelPool(url, exchange string, size int, logger zerolog.Logger) (*ChannelPool, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	open := func() (channel, error) {
		ch, err := conn.Channel()
		if err != nil {
			return nil, err
		}
		err = ch.ExchangeDeclare(
			exchange, // name
			amqp.ExchangeTopic,
			true,  // durable
			false, // auto-deleted
			false, // internal
			false, // no-wait
			nil,
		)
		if err != nil {
			ch.Close()
			return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
		}
		return ch, nil
	}

	return newChannelPool(open, conn, size, logger)
}

func newChannelPool(open func() (channel, error), conn io.Closer, size int, logger zerolog.Logger) (*ChannelPool, error) {
	if size < 1 {
		size = 1
	}

	pool := &ChannelPool{
		open:     open,
		conn:     conn,
		channels: make(chan channel, size),
		logger:   logger.With().Str("component", "amqp-channel-pool").Logger(),
	}

	for i := 0; i < size; i++ {
		ch, err := open()
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create channel %d: %w", i, err)
		}
		pool.channels <- ch
	}

	pool.logger.Info().Int("size", size).Msg("RabbitMQ channel pool created")
	return pool, nil
}

// Get waits for a free channel, replacing it when the broker closed it.
func (p *ChannelPool) Get(ctx context.Context) (channel, error) {
	select {
	case ch, ok := <-p.channels:
		if !ok {
			return nil, ErrPoolClosed
		}
		if ch.IsClosed() {
			p.logger.Warn().Msg("replacing closed channel")
			fresh, err := p.open()
			if err != nil {
				// keep the slot; the next Get retries the reopen
				p.Put(ch)
				p.logger.Error().Err(err).Msg("failed to reopen channel")
				return nil, fmt.Errorf("failed to reopen channel: %w", err)
			}
			return fresh, nil
		}
		return ch, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("no channel available: %w", ctx.Err())
	}
}

// Put returns a channel to the pool. A closed channel keeps its slot and is
// reopened by the next Get. Channels returned after Close are discarded.
func (p *ChannelPool) Put(ch channel) {
	if ch == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		_ = ch.Close()
		return
	}

	select {
	case p.channels <- ch:
	default:
		_ = ch.Close()
	}
}

// Close closes every pooled channel and the connection.
func (p *ChannelPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	close(p.channels)
	for ch := range p.channels {
		_ = ch.Close()
	}

	var err error
	if p.conn != nil {
		err = p.conn.Close()
	}

	p.logger.Info().Msg("RabbitMQ channel pool closed")
	return err
}
