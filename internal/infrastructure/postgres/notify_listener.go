package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ProcessedChannel canal NOTIFY emitido por trg_fiscal_note_processed.
const ProcessedChannel = "fiscal_note_processed"

const listenRetryDelay = 5 * time.Second

// NotifyListener mantiene una conexión dedicada con LISTEN y entrega cada payload (id de nota)
// al handler. Reconecta ante errores hasta que ctx se cancele.
type NotifyListener struct {
	pool    *pgxpool.Pool
	channel string
	log     zerolog.Logger
}

// NewNotifyListener construye el listener sobre el canal de notas procesadas.
func NewNotifyListener(pool *pgxpool.Pool, log zerolog.Logger) *NotifyListener {
	return &NotifyListener{
		pool:    pool,
		channel: ProcessedChannel,
		log:     log.With().Str("component", "notify_listener").Logger(),
	}
}

// Run bloquea hasta que ctx se cancele.
func (l *NotifyListener) Run(ctx context.Context, handle func(noteID string)) error {
	for {
		err := l.listen(ctx, handle)
		if ctx.Err() != nil {
			return nil
		}
		l.log.Warn().Err(err).Dur("retry_in", listenRetryDelay).Msg("LISTEN interrumpido")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(listenRetryDelay):
		}
	}
}

func (l *NotifyListener) listen(ctx context.Context, handle func(noteID string)) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire conn: %w", err)
	}
	defer func() {
		if !conn.Conn().IsClosed() {
			_, _ = conn.Exec(context.WithoutCancel(ctx), "UNLISTEN *")
		}
		conn.Release()
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}
	l.log.Info().Str("channel", l.channel).Msg("escuchando notas procesadas")

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		if n.Payload != "" {
			handle(n.Payload)
		}
	}
}
