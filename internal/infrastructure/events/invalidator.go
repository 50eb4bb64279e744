package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jhoicas/inventario-sync/internal/domain/entity"
	"github.com/jhoicas/inventario-sync/internal/infrastructure/cache"
	"github.com/jhoicas/inventario-sync/pkg/logger"
)

// MovementEvent lo mínimo que se lee de un movimiento publicado por otro cliente.
type MovementEvent struct {
	ID           string              `json:"id"`
	ProductID    string              `json:"productId"`
	MovementType entity.MovementType `json:"movementType"`
}

// Invalidator descarta las cachés afectadas por un movimiento ajeno.
type Invalidator struct {
	ledger *cache.Cache
	lookup *cache.Cache
	log    *logger.Logger
}

// NewInvalidator construye el invalidador. lookup puede ser nil.
func NewInvalidator(ledger, lookup *cache.Cache, log *logger.Logger) *Invalidator {
	if log == nil {
		log = logger.Nop()
	}
	return &Invalidator{ledger: ledger, lookup: lookup, log: log.Component("events")}
}

// Handle procesa el cuerpo de un mensaje. El libro se invalida siempre, aunque el
// mensaje no se pueda leer; las facturas devolvibles solo cambian con RECEIPT y RETURN.
func (i *Invalidator) Handle(ctx context.Context, value []byte) (MovementEvent, error) {
	var ev MovementEvent
	decodeErr := json.Unmarshal(value, &ev)
	ev.MovementType = entity.MovementType(strings.ToUpper(strings.TrimSpace(string(ev.MovementType))))

	if i.ledger != nil {
		if err := i.ledger.InvalidateAll(ctx); err != nil {
			return ev, fmt.Errorf("events: invalidar libro: %w", err)
		}
	}
	if decodeErr != nil {
		return ev, fmt.Errorf("events: mensaje ilegible: %w", decodeErr)
	}
	if i.lookup != nil && affectsReturns(ev.MovementType) {
		if err := i.lookup.InvalidateAll(ctx); err != nil {
			return ev, fmt.Errorf("events: invalidar facturas: %w", err)
		}
	}
	i.log.Debug().Str("product_id", ev.ProductID).Str("movement_type", string(ev.MovementType)).
		Msg("cachés invalidadas por movimiento externo")
	return ev, nil
}

func affectsReturns(t entity.MovementType) bool {
	return t == entity.MovementTypeReceipt || t == entity.MovementTypeReturn
}
