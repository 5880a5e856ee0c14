package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"manejobot/internal/models"
)

var saoPaulo = mustLoadLocation("America/Sao_Paulo")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("-03", -3*60*60)
	}
	return loc
}

// NewLotCode generates a traceability code in the form
// LOTE-YYYYMMDD-XXXX, dated in farm-local time.
func NewLotCode(now time.Time) string {
	suffix := strings.ToUpper(uuid.NewString()[:4])
	return fmt.Sprintf("LOTE-%s-%s", now.In(saoPaulo).Format("20060102"), suffix)
}

// EnsureLot assigns a lot code to harvest records that arrived without one.
// Existing codes are never replaced.
func EnsureLot(rec *models.Record, now time.Time) {
	if rec.ActivityType != models.ActivityColheita {
		return
	}
	if rec.Lot != "" {
		return
	}
	rec.Lot = NewLotCode(now)
	for i := range rec.Items {
		if rec.Items[i].Role == models.RolePrincipal && rec.Items[i].Lot == "" {
			rec.Items[i].Lot = rec.Lot
		}
	}
}
