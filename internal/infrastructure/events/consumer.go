package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/inventario-sync/pkg/logger"
)

// DefaultTopic tema donde el servicio remoto publica los movimientos.
const DefaultTopic = "stock.movements"

// Config parámetros del consumidor.
type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Consumer grupo de consumo de Kafka que mantiene frescas las cachés locales.
type Consumer struct {
	group sarama.ConsumerGroup
	topic string
	inv   *Invalidator
	log   *logger.Logger
}

// NewConsumer crea el grupo de consumo. Solo lee mensajes nuevos: lo anterior ya
// está reflejado en lo que el servicio devuelva al próximo fallo de caché.
func NewConsumer(cfg Config, inv *Invalidator, log *logger.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("events: sin brokers")
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if log == nil {
		log = logger.Nop()
	}
	sc := sarama.NewConfig()
	sc.Version = sarama.V2_6_0_0
	sc.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	sc.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, sc)
	if err != nil {
		return nil, fmt.Errorf("events: crear consumidor: %w", err)
	}
	log = log.Component("events")
	log.Info().Strs("brokers", cfg.Brokers).Str("topic", cfg.Topic).Str("group_id", cfg.GroupID).
		Msg("consumidor de movimientos inicializado")
	return newConsumer(group, cfg.Topic, inv, log), nil
}

func newConsumer(group sarama.ConsumerGroup, topic string, inv *Invalidator, log *logger.Logger) *Consumer {
	return &Consumer{group: group, topic: topic, inv: inv, log: log}
}

// Start consume en segundo plano hasta que ctx se cancele.
func (c *Consumer) Start(ctx context.Context) {
	h := &groupHandler{inv: c.inv, log: c.log}
	go func() {
		for {
			if err := c.group.Consume(ctx, []string{c.topic}, h); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				c.log.Error().Err(err).Msg("error del consumidor")
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()
	go func() {
		for err := range c.group.Errors() {
			c.log.Error().Err(err).Msg("error del grupo de consumo")
		}
	}()
}

// Close cierra el grupo de consumo.
func (c *Consumer) Close() error {
	if c.group == nil {
		return nil
	}
	return c.group.Close()
}

type groupHandler struct {
	inv *Invalidator
	log *logger.Logger
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		h.handle(session.Context(), msg)
		session.MarkMessage(msg, "")
	}
	return nil
}

// handle procesa un mensaje con el contexto de traza que traiga en sus cabeceras.
// Un mensaje que falla se registra y se marca igual: el libro ya quedó invalidado.
func (h *groupHandler) handle(ctx context.Context, msg *sarama.ConsumerMessage) {
	carrier := propagation.MapCarrier{}
	for _, hd := range msg.Headers {
		if hd == nil {
			continue
		}
		if k := string(hd.Key); k == "traceparent" || k == "tracestate" {
			carrier[k] = string(hd.Value)
		}
	}
	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)
	ctx, span := otel.Tracer("inventario-sync/events").Start(ctx, "kafka.consume.stock_movement",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.source", msg.Topic),
			attribute.Int("messaging.kafka.partition", int(msg.Partition)),
			attribute.Int64("messaging.kafka.offset", msg.Offset),
		),
	)
	defer span.End()

	ev, err := h.inv.Handle(ctx, msg.Value)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "movimiento no procesado")
		h.log.Warn().Err(err).Str("topic", msg.Topic).Int64("offset", msg.Offset).
			Msg("movimiento externo no procesado")
		return
	}
	span.SetAttributes(
		attribute.String("movement.product_id", ev.ProductID),
		attribute.String("movement.type", string(ev.MovementType)),
	)
	span.SetStatus(codes.Ok, "")
}
