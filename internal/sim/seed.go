package sim

import (
	"go.uber.org/zap"

	"github.com/dyluth/vigil/internal/registry"
	"github.com/dyluth/vigil/pkg/event"
)

// Seed registers the cast and places a recorded log refers to, so a
// resimulation has witnesses and boards to work with. Actors are only
// registered when an event names their role; each goes where it was first
// seen. Places already present keep their configured board.
func (e *Engine) Seed(events []event.Event) (actors, boards int) {
	for _, ev := range events {
		if ev.ActorID != "" && ev.ActorRole != "" && ev.ActorID != InvestigatorID {
			if _, ok := e.actors.Get(ev.ActorID); !ok {
				e.actors.Register(registry.Actor{ID: ev.ActorID, Role: ev.ActorRole, Position: ev.Position})
				actors++
			}
		}

		place := ev.PlaceID
		if place == "" {
			place = ev.ZoneID
		}
		if place != "" {
			if _, ok := e.boards.Get(place); !ok {
				e.AddBoard(place, ev.Position)
				boards++
			}
		}
	}
	if actors > 0 || boards > 0 {
		e.logger.Debug("seeded from log", zap.Int("actors", actors), zap.Int("boards", boards))
	}
	return actors, boards
}
