package radio

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// frame is one broadcast unit traveling over a Medium, tagged with a UUID
// for log correlation the way distributed systems elsewhere in the pack
// stamp units of work with a correlation id.
type frame struct {
	id      uuid.UUID
	from    string
	payload []byte
	rssi    int
}

// Medium is an in-process shared broadcast bus standing in for the LoRa
// PHY in tests and the CLI's simulated-mesh mode. It is not, and does not
// attempt to be, a model of RF propagation beyond a configurable per-pair
// RSSI table.
type Medium struct {
	mu    sync.Mutex
	links map[string]*BusLink
	rssi  map[[2]string]int
	log   *zap.Logger
}

// NewMedium creates an empty broadcast bus.
func NewMedium(log *zap.Logger) *Medium {
	if log == nil {
		log = zap.NewNop()
	}
	return &Medium{
		links: make(map[string]*BusLink),
		rssi:  make(map[[2]string]int),
		log:   log,
	}
}

func pairKey(a, b string) [2]string {
	if a < b {
		return [2]string{a, b}
	}
	return [2]string{b, a}
}

// SetRSSI fixes the simulated RSSI (dBm, expected negative) observed
// between the links named a and b, symmetric in both directions.
func (m *Medium) SetRSSI(a, b string, dbm int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rssi[pairKey(a, b)] = dbm
}

// Join registers a new BusLink named name on the bus and returns it.
func (m *Medium) Join(name string) *BusLink {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := &BusLink{
		name:   name,
		medium: m,
		inbox:  make(chan frame, 32),
	}
	m.links[name] = l
	return l
}

// broadcast delivers f to every link other than the sender, each with the
// RSSI configured for that pair. A link with no configured RSSI to the
// sender is out of range and never receives the frame.
func (m *Medium) broadcast(f frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, l := range m.links {
		if name == f.from {
			continue
		}
		rssi, ok := m.rssi[pairKey(f.from, name)]
		if !ok {
			continue // unconfigured pair: out of range, frame is not delivered
		}
		df := f
		df.rssi = rssi
		select {
		case l.inbox <- df:
		default:
			m.log.Warn("dropping frame, receiver inbox full",
				zap.String("from", f.from), zap.String("to", name), zap.String("frame_id", f.id.String()))
		}
	}
}

// BusLink is a Link implementation over a Medium.
type BusLink struct {
	name   string
	medium *Medium
	inbox  chan frame

	rxBuf  []byte
	rxOff  int
	rxRSSI int
	hasRX  bool
}

var _ Link = (*BusLink)(nil)

func (l *BusLink) Init(ctx context.Context) error {
	return nil
}

func (l *BusLink) Send(ctx context.Context, b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("radio: refusing to send empty frame")
	}
	payload := make([]byte, len(b))
	copy(payload, b)
	l.medium.broadcast(frame{id: uuid.New(), from: l.name, payload: payload})
	return nil
}

func (l *BusLink) Poll() (int, int, bool) {
	select {
	case f := <-l.inbox:
		l.rxBuf = f.payload
		l.rxOff = 0
		l.rxRSSI = f.rssi
		l.hasRX = true
		return len(f.payload), f.rssi, true
	default:
		return 0, 0, false
	}
}

func (l *BusLink) ReadByte() (byte, bool) {
	if !l.hasRX || l.rxOff >= len(l.rxBuf) {
		return 0, false
	}
	b := l.rxBuf[l.rxOff]
	l.rxOff++
	return b, true
}
