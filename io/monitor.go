package io

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebfe/scard"
)

type EventType int

const (
	CardDetected EventType = iota
	CardRemoved
	MonitorError
)

func (t EventType) String() string {
	switch t {
	case CardDetected:
		return "card-detected"
	case CardRemoved:
		return "card-removed"
	case MonitorError:
		return "monitor-error"
	default:
		return "unknown"
	}
}

// Event describes a change seen by the CardMonitor. A CardRemoved event is
// only ever emitted after a matching CardDetected one.
type Event struct {
	Type   EventType
	Reader string
	UID    string
	Err    error
}

var ErrCardNotConnected = errors.New("no card connected")

const (
	defaultPollingInterval = 100 * time.Millisecond
	minPollingInterval     = 10 * time.Millisecond
	maxPollingInterval     = 10 * time.Second
)

// CardMonitor polls the PC/SC readers for card insertions and removals and
// exposes the connected card as a Transmitter.
type CardMonitor struct {
	mu          sync.Mutex
	ctx         *scard.Context
	card        *scard.Card
	reader      string
	readerIndex int
	interval    time.Duration
	ticker      *time.Ticker
	events      chan Event
	quit        chan struct{}
	done        chan struct{}
}

func NewCardMonitor() *CardMonitor {
	return &CardMonitor{
		readerIndex: -1,
		interval:    defaultPollingInterval,
		events:      make(chan Event, 16),
	}
}

// SetPollingInterval changes how often the readers are polled. The interval
// is clamped between 10ms and 10s. Takes effect immediately when the monitor
// is already running.
func (m *CardMonitor) SetPollingInterval(d time.Duration) {
	if d < minPollingInterval {
		d = minPollingInterval
	}
	if d > maxPollingInterval {
		d = maxPollingInterval
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.interval = d
	if m.ticker != nil {
		m.ticker.Reset(d)
	}
}

// SetReaderIndex restricts polling to a single reader. A negative index
// means any reader, which is the default.
func (m *CardMonitor) SetReaderIndex(index int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.readerIndex = index
}

func (m *CardMonitor) Events() <-chan Event {
	return m.events
}

// Start establishes the PC/SC context and begins polling.
func (m *CardMonitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx != nil {
		return nil
	}

	ctx, err := scard.EstablishContext()
	if err != nil {
		return err
	}

	m.ctx = ctx
	m.ticker = time.NewTicker(m.interval)
	m.quit = make(chan struct{})
	m.done = make(chan struct{})

	go m.loop()

	return nil
}

// Stop ends polling, disconnects the card if one is connected and releases
// the PC/SC context.
func (m *CardMonitor) Stop() {
	m.mu.Lock()
	if m.ctx == nil {
		m.mu.Unlock()
		return
	}

	quit := m.quit
	done := m.done
	m.mu.Unlock()

	close(quit)
	<-done

	m.mu.Lock()
	defer m.mu.Unlock()

	m.ticker.Stop()
	m.dropCard()
	if err := m.ctx.Release(); err != nil {
		logger.Error("error releasing context", "error", err)
	}
	m.ctx = nil
}

func (m *CardMonitor) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.card != nil
}

// Transmit implements Transmitter on the currently connected card.
func (m *CardMonitor) Transmit(data []byte) ([]byte, error) {
	m.mu.Lock()
	card := m.card
	m.mu.Unlock()

	if card == nil {
		return nil, ErrCardNotConnected
	}

	return card.Transmit(data)
}

func (m *CardMonitor) loop() {
	defer close(m.done)

	m.poll()

	for {
		select {
		case <-m.quit:
			return
		case <-m.ticker.C:
			m.poll()
		}
	}
}

func (m *CardMonitor) poll() {
	if ev := m.checkCard(); ev != nil {
		select {
		case m.events <- *ev:
		case <-m.quit:
		}
	}
}

func (m *CardMonitor) checkCard() *Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.card != nil {
		if _, err := m.card.Status(); err == nil {
			return nil
		}

		reader := m.reader
		m.dropCard()

		return &Event{Type: CardRemoved, Reader: reader}
	}

	readers, err := m.ctx.ListReaders()
	if err != nil {
		if err == scard.ErrNoReadersAvailable {
			return nil
		}

		return &Event{Type: MonitorError, Err: err}
	}

	if m.readerIndex >= 0 {
		if m.readerIndex >= len(readers) {
			return &Event{Type: MonitorError, Err: fmt.Errorf("reader index %d out of range", m.readerIndex)}
		}

		readers = readers[m.readerIndex : m.readerIndex+1]
	}

	for _, reader := range readers {
		card, err := m.ctx.Connect(reader, scard.ShareShared, scard.ProtocolAny)
		if err != nil {
			continue
		}

		status, err := card.Status()
		if err != nil {
			_ = card.Disconnect(scard.LeaveCard)
			continue
		}

		m.card = card
		m.reader = reader

		return &Event{Type: CardDetected, Reader: reader, UID: cardUID(status.Atr)}
	}

	return nil
}

func (m *CardMonitor) dropCard() {
	if m.card == nil {
		return
	}

	if err := m.card.Disconnect(scard.ResetCard); err != nil {
		logger.Debug("error disconnecting card", "error", err)
	}

	m.card = nil
	m.reader = ""
}

// cardUID derives a short identifier from the last 4 bytes of the ATR.
func cardUID(atr []byte) string {
	if len(atr) > 4 {
		atr = atr[len(atr)-4:]
	}

	return hex.EncodeToString(atr)
}
