package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/inventario-sync/internal/domain"
	"github.com/jhoicas/inventario-sync/internal/infrastructure/metrics"
	"github.com/jhoicas/inventario-sync/pkg/logger"
)

// DefaultQuiet silencio por defecto antes de disparar una búsqueda.
const DefaultQuiet = 300 * time.Millisecond

// channelState contabilidad de un canal: la secuencia de la petición vigente,
// su cancelación y el temporizador de debounce pendiente.
type channelState struct {
	seq    uint64
	cancel context.CancelFunc
	timer  *time.Timer
}

// Lifecycle dueño de las peticiones de una vista (o del proceso). Cada canal lógico
// admite una sola petición vigente: emitir otra cancela la anterior, y la respuesta
// de una petición reemplazada nunca se aplica.
type Lifecycle struct {
	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	channels map[string]*channelState
	closed   bool
	metrics  *metrics.Metrics
	log      *logger.Logger
}

// New crea el ciclo de vida; cancelar parent equivale a cerrarlo.
func New(parent context.Context, m *metrics.Metrics, log *logger.Logger) *Lifecycle {
	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Lifecycle{
		ctx:      ctx,
		cancel:   cancel,
		channels: make(map[string]*channelState),
		metrics:  m,
		log:      log,
	}
}

// Scoped canal propio de un dueño (p. ej. el usuario de la petición HTTP): las
// peticiones de dueños distintos no se reemplazan entre sí. Sin dueño devuelve channel.
func Scoped(channel, owner string) string {
	if owner == "" {
		return channel
	}
	return channel + ":" + owner
}

func (l *Lifecycle) state(channel string) *channelState {
	st, ok := l.channels[channel]
	if !ok {
		st = &channelState{}
		l.channels[channel] = st
	}
	return st
}

// begin cancela la petición vigente del canal y registra una nueva.
func (l *Lifecycle) begin(caller context.Context, channel string) (context.Context, uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, 0, domain.ErrLifecycleClosed
	}
	st := l.state(channel)
	if st.cancel != nil {
		st.cancel()
	}
	st.seq++
	ctx, cancel := context.WithCancel(l.ctx)
	if caller != nil {
		stop := context.AfterFunc(caller, cancel)
		st.cancel = func() {
			stop()
			cancel()
		}
	} else {
		st.cancel = cancel
	}
	return ctx, st.seq, nil
}

// finish comprueba bajo el candado si seq sigue vigente y, de ser así, ejecuta apply.
func (l *Lifecycle) finish(channel string, seq uint64, apply func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.channels[channel]
	if l.closed || !ok || st.seq != seq {
		return false
	}
	if st.cancel != nil {
		st.cancel()
		st.cancel = nil
	}
	if apply != nil {
		apply()
	}
	return true
}

// Do ejecuta fn como la petición vigente del canal. Si otra petición del mismo canal
// la reemplaza (o el ciclo se cierra) antes de terminar, su resultado se descarta y
// se devuelve domain.ErrSuperseded. apply corre solo con éxito y solo si sigue vigente,
// bajo el candado del ciclo, así que dos respuestas del mismo canal nunca se cruzan.
// No se reintenta nada tras una cancelación.
func Do[T any](ctx context.Context, l *Lifecycle, channel string, fn func(context.Context) (T, error), apply func(T)) (T, error) {
	var zero T
	reqCtx, seq, err := l.begin(ctx, channel)
	if err != nil {
		return zero, err
	}
	v, err := fn(reqCtx)

	applied := l.finish(channel, seq, func() {
		if err == nil && apply != nil {
			apply(v)
		}
	})
	if !applied {
		l.metrics.Superseded(channel)
		l.log.Debug().Str("channel", channel).Uint64("seq", seq).Msg("respuesta descartada: petición reemplazada")
		return zero, domain.ErrSuperseded
	}
	if err != nil {
		return zero, err
	}
	return v, nil
}

// Cancel cancela la petición vigente del canal y su debounce pendiente.
func (l *Lifecycle) Cancel(channel string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.channels[channel]
	if !ok {
		return
	}
	st.seq++
	if st.cancel != nil {
		st.cancel()
		st.cancel = nil
	}
	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}
}

// Debounce programa fn tras quiet de silencio; una nueva llamada en el mismo canal
// reinicia la espera, así que ráfagas rápidas se reducen a una sola ejecución.
func (l *Lifecycle) Debounce(channel string, quiet time.Duration, fn func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return domain.ErrLifecycleClosed
	}
	st := l.state(channel)
	if st.timer != nil {
		st.timer.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(quiet, func() {
		l.mu.Lock()
		current := st.timer == timer && !l.closed
		if current {
			st.timer = nil
		}
		l.mu.Unlock()
		if current {
			fn()
		}
	})
	st.timer = timer
	return nil
}

// StopDebounce descarta el debounce pendiente del canal sin tocar la petición en vuelo.
// Devuelve true si había uno pendiente.
func (l *Lifecycle) StopDebounce(channel string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.channels[channel]
	if !ok || st.timer == nil {
		return false
	}
	st.timer.Stop()
	st.timer = nil
	return true
}

// Pending indica si el canal tiene un debounce programado.
func (l *Lifecycle) Pending(channel string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.channels[channel]
	return ok && st.timer != nil
}

// Context contexto base de las peticiones disparadas por debounce.
func (l *Lifecycle) Context() context.Context { return l.ctx }

// Close cancela todas las peticiones en vuelo y detiene los temporizadores pendientes.
// Es idempotente.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	for name, st := range l.channels {
		if st.cancel != nil {
			st.cancel()
			st.cancel = nil
		}
		if st.timer != nil {
			st.timer.Stop()
			st.timer = nil
		}
		delete(l.channels, name)
	}
	l.cancel()
	l.log.Debug().Msg("ciclo de peticiones cerrado")
}
