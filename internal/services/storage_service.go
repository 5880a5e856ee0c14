package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"manejobot/internal/database"
	"manejobot/internal/models"
	"manejobot/internal/normalize"
)

// ErrUnknownSender means the phone number maps to no registered producer.
var ErrUnknownSender = errors.New("remetente não cadastrado")

// ErrRecordNotFound means the record id maps to no stored row.
var ErrRecordNotFound = errors.New("registro não encontrado")

// ProtectedStateError is returned when an update targets a record whose
// status locks it against edits.
type ProtectedStateError struct {
	RecordID int64
	Status   string
}

func (e *ProtectedStateError) Error() string {
	return fmt.Sprintf("Registros com status '%s' não podem ser editados.", e.Status)
}

// StorageService persists field notebook records and resolves producers,
// plots and authorized inputs.
type StorageService struct {
	db        *database.DB
	plotCache *cache.Cache
	metrics   *Metrics
}

func NewStorageService(db *database.DB, metrics *Metrics) *StorageService {
	return &StorageService{
		db:        db,
		plotCache: cache.New(5*time.Minute, 10*time.Minute),
		metrics:   metrics,
	}
}

// FindProducerByPhone resolves the sender to a production unit (PMO).
func (s *StorageService) FindProducerByPhone(ctx context.Context, phone string) (int64, string, error) {
	var id int64
	var producer string
	err := s.db.Conn().QueryRowContext(ctx,
		"SELECT id, produtor FROM pmos WHERE telefone = ?", phone).Scan(&id, &producer)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", ErrUnknownSender
	}
	if err != nil {
		return 0, "", fmt.Errorf("erro ao buscar produtor: %w", err)
	}
	return id, producer, nil
}

// SaveRecord inserts a completed record, synthesizing the technical
// details block for the activity type.
func (s *StorageService) SaveRecord(ctx context.Context, rec *models.Record) (int64, error) {
	rec.TechnicalDetails = synthesizeDetails(rec)

	items, err := json.Marshal(rec.Items)
	if err != nil {
		return 0, fmt.Errorf("erro ao serializar itens: %w", err)
	}
	details, err := json.Marshal(rec.TechnicalDetails)
	if err != nil {
		return 0, fmt.Errorf("erro ao serializar detalhes: %w", err)
	}

	status := rec.Status
	if status == "" {
		status = "Rascunho"
	}

	res, err := s.db.Conn().ExecContext(ctx, `
		INSERT INTO caderno_campo
			(pmo_id, tipo_atividade, data_registro, talhao_canteiro, atividades,
			 sistema, observacao, observacao_original, destino, origem,
			 valor_total, lote, detalhes_tecnicos, responsavel, status, audio_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.PMOID, rec.ActivityType, rec.Date, rec.LocationText, items,
		rec.System, rec.Observation, rec.OriginalText, rec.Destination, rec.Origin,
		rec.TotalValue, rec.Lot, details, rec.Responsible, status, rec.AudioURL)
	if err != nil {
		return 0, fmt.Errorf("erro ao salvar registro: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("erro ao obter id do registro: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordsSaved.WithLabelValues(rec.ActivityType).Inc()
	}
	return id, nil
}

// GetRecord loads one record, migrating the stored activity payload from
// any historical shape to the current item list. Rows imported from the
// old notebook still carry flat or produto_principal payloads.
func (s *StorageService) GetRecord(ctx context.Context, id int64) (*models.Record, error) {
	var rec models.Record
	var payload []byte
	var system, observation, original, destination, origin, lot, responsible, status, audioURL sql.NullString
	var totalValue sql.NullFloat64

	err := s.db.Conn().QueryRowContext(ctx, `
		SELECT id, pmo_id, tipo_atividade, data_registro, talhao_canteiro,
		       atividades, sistema, observacao, observacao_original, destino,
		       origem, valor_total, lote, responsavel, status, audio_url
		FROM caderno_campo WHERE id = ?`, id).
		Scan(&rec.ID, &rec.PMOID, &rec.ActivityType, &rec.Date, &rec.LocationText,
			&payload, &system, &observation, &original, &destination,
			&origin, &totalValue, &lot, &responsible, &status, &audioURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("registro %d: %w", id, ErrRecordNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("erro ao carregar registro: %w", err)
	}

	rec.System = system.String
	rec.Observation = observation.String
	rec.OriginalText = original.String
	rec.Destination = destination.String
	rec.Origin = origin.String
	rec.TotalValue = totalValue.Float64
	rec.Lot = lot.String
	rec.Responsible = responsible.String
	rec.Status = status.String
	rec.AudioURL = audioURL.String

	doc := bytes.TrimSpace(payload)
	switch {
	case len(doc) == 0:
		// Row predates item payloads entirely.
	case doc[0] == '[':
		if err := json.Unmarshal(doc, &rec.Items); err != nil {
			return nil, fmt.Errorf("erro ao decodificar itens do registro %d: %w", id, err)
		}
	default:
		norm, err := normalize.Normalize(doc)
		if err != nil {
			return nil, fmt.Errorf("erro ao migrar registro %d: %w", id, err)
		}
		rec.Items = norm.Items
		if rec.System == "" {
			rec.System = norm.System
		}
		if rec.LocationText == "" {
			rec.LocationText = norm.LocationText
		}
	}
	return &rec, nil
}

// UpdateRecord applies field changes to an existing record, refusing when
// its status protects it from edits.
func (s *StorageService) UpdateRecord(ctx context.Context, id int64, changes map[string]any) error {
	var status string
	err := s.db.Conn().QueryRowContext(ctx,
		"SELECT status FROM caderno_campo WHERE id = ?", id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("registro %d: %w", id, ErrRecordNotFound)
	}
	if err != nil {
		return fmt.Errorf("erro ao consultar registro: %w", err)
	}

	if models.IsProtectedStatus(status) {
		return &ProtectedStateError{RecordID: id, Status: status}
	}

	if len(changes) == 0 {
		return nil
	}

	cols := make([]string, 0, len(changes))
	args := make([]any, 0, len(changes)+1)
	for _, col := range []string{"observacao", "destino", "valor_total", "status", "talhao_canteiro"} {
		if v, ok := changes[col]; ok {
			cols = append(cols, col+" = ?")
			args = append(args, v)
		}
	}
	if len(cols) == 0 {
		return fmt.Errorf("nenhum campo editável informado")
	}
	args = append(args, id)

	_, err = s.db.Conn().ExecContext(ctx,
		"UPDATE caderno_campo SET "+strings.Join(cols, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("erro ao atualizar registro: %w", err)
	}
	return nil
}

// LookupPlot resolves a plot name to its registered row, caching hits
// since the same plots repeat across an afternoon of reports.
func (s *StorageService) LookupPlot(ctx context.Context, pmoID int64, name string) (*models.Plot, error) {
	key := fmt.Sprintf("%d:%s", pmoID, strings.ToLower(name))
	if cached, ok := s.plotCache.Get(key); ok {
		return cached.(*models.Plot), nil
	}

	var plot models.Plot
	err := s.db.Conn().QueryRowContext(ctx,
		"SELECT id, nome FROM talhoes WHERE pmo_id = ? AND LOWER(nome) = LOWER(?)",
		pmoID, name).Scan(&plot.ID, &plot.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar talhão: %w", err)
	}

	s.plotCache.Set(key, &plot, cache.DefaultExpiration)
	return &plot, nil
}

// PlotInQuarantine reports whether the plot is inside a waiting period.
func (s *StorageService) PlotInQuarantine(ctx context.Context, plotID int64, now time.Time) (bool, error) {
	var until sql.NullTime
	err := s.db.Conn().QueryRowContext(ctx,
		"SELECT quarentena_ate FROM talhoes WHERE id = ?", plotID).Scan(&until)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("erro ao consultar quarentena: %w", err)
	}
	return until.Valid && now.Before(until.Time), nil
}

// IsInputAuthorized checks the producer's management plan for the input.
func (s *StorageService) IsInputAuthorized(ctx context.Context, pmoID int64, input string) (bool, error) {
	var count int
	err := s.db.Conn().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM insumos_plano WHERE pmo_id = ? AND LOWER(nome) = LOWER(?)",
		pmoID, input).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("erro ao consultar plano: %w", err)
	}
	return count > 0, nil
}

// Advise cross-checks a record against the producer's registered plan:
// plot resolution (filling talhao_id), quarantine windows and input
// authorization. Failures here only suppress the advisory; the record
// still saves.
func (s *StorageService) Advise(ctx context.Context, rec *models.Record) []string {
	var warnings []string

	for i := range rec.Items {
		item := &rec.Items[i]

		plotName := item.Location.Plot
		if plotName != "" && plotName != models.LocationNotInformed {
			plot, err := s.LookupPlot(ctx, rec.PMOID, plotName)
			if err != nil {
				log.Printf("⚠️  Falha ao resolver talhão %q: %v", plotName, err)
			} else if plot != nil {
				item.Location.PlotID = plot.ID
				inQuarantine, err := s.PlotInQuarantine(ctx, plot.ID, rec.Date)
				if err != nil {
					log.Printf("⚠️  Falha ao consultar quarentena do talhão %q: %v", plotName, err)
				} else if inQuarantine {
					warnings = append(warnings, fmt.Sprintf(
						"⚠️ Talhão '%s' está em período de carência.", plot.Name))
				}
			}
		}

		if rec.ActivityType == models.ActivityInsumo || rec.ActivityType == models.ActivityManejo {
			authorized, err := s.IsInputAuthorized(ctx, rec.PMOID, item.Product)
			if err != nil {
				log.Printf("⚠️  Falha ao consultar plano de manejo: %v", err)
			} else if !authorized {
				warnings = append(warnings, fmt.Sprintf(
					"⚠️ Insumo '%s' não autorizado no Plano de Manejo.", item.Product))
			}
		}
	}
	return warnings
}

// synthesizeDetails builds the per-type technical details block reviewers
// expect alongside each activity.
func synthesizeDetails(rec *models.Record) map[string]any {
	item := rec.PrimaryItem()

	switch rec.ActivityType {
	case models.ActivityPlantio:
		return map[string]any{
			"qtd_utilizada":     item.Quantity,
			"unidade_medida":    item.Unit,
			"metodo_propagacao": "Muda",
		}
	case models.ActivityManejo, models.ActivityInsumo:
		details := map[string]any{
			"insumo":      strings.ToUpper(item.Product),
			"tipo_manejo": "Adubação",
		}
		if item.DoseVal > 0 {
			details["dosagem"] = item.DoseVal
			details["unidade_dosagem"] = item.DoseUnit
		} else {
			details["dosagem"] = item.Quantity
			details["unidade_dosagem"] = item.Unit
		}
		return details
	case models.ActivityColheita:
		return map[string]any{
			"qtd":     item.Quantity,
			"unidade": item.Unit,
		}
	}
	return nil
}
