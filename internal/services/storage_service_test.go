package services

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"manejobot/internal/database"
	"manejobot/internal/models"
)

// recordingDriver is a minimal database/sql driver serving canned rows and
// counting writes.
type recordingDriver struct {
	status    string
	recordRow []driver.Value
	execs     int
}

func (d *recordingDriver) Open(string) (driver.Conn, error) { return &recordingConn{d: d}, nil }

type recordingConn struct{ d *recordingDriver }

func (c *recordingConn) Prepare(query string) (driver.Stmt, error) {
	return &recordingStmt{d: c.d, query: query}, nil
}
func (c *recordingConn) Close() error              { return nil }
func (c *recordingConn) Begin() (driver.Tx, error) { return nil, errors.New("sem transações") }

type recordingStmt struct {
	d     *recordingDriver
	query string
}

func (s *recordingStmt) Close() error  { return nil }
func (s *recordingStmt) NumInput() int { return -1 }

func (s *recordingStmt) Exec([]driver.Value) (driver.Result, error) {
	s.d.execs++
	return driver.RowsAffected(1), nil
}

func (s *recordingStmt) Query([]driver.Value) (driver.Rows, error) {
	switch {
	case strings.Contains(s.query, "SELECT status"):
		return &recordingRows{cols: []string{"status"}, vals: [][]driver.Value{{s.d.status}}}, nil
	case strings.Contains(s.query, "FROM caderno_campo") && s.d.recordRow != nil:
		return &recordingRows{cols: recordColumns, vals: [][]driver.Value{s.d.recordRow}}, nil
	}
	return &recordingRows{}, nil
}

var recordColumns = []string{
	"id", "pmo_id", "tipo_atividade", "data_registro", "talhao_canteiro",
	"atividades", "sistema", "observacao", "observacao_original", "destino",
	"origem", "valor_total", "lote", "responsavel", "status", "audio_url",
}

type recordingRows struct {
	cols []string
	vals [][]driver.Value
	i    int
}

func (r *recordingRows) Columns() []string { return r.cols }
func (r *recordingRows) Close() error      { return nil }
func (r *recordingRows) Next(dest []driver.Value) error {
	if r.i >= len(r.vals) {
		return io.EOF
	}
	copy(dest, r.vals[r.i])
	r.i++
	return nil
}

var driverSeq atomic.Int64

func newRecordingDB(t *testing.T, d *recordingDriver) *database.DB {
	t.Helper()
	name := fmt.Sprintf("recording-%d", driverSeq.Add(1))
	sql.Register(name, d)
	conn, err := sql.Open(name, "")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return database.Wrap(conn)
}

func TestSynthesizeDetailsPerType(t *testing.T) {
	plantio := &models.Record{
		ActivityType: models.ActivityPlantio,
		Items:        []models.ActivityItem{{Product: "ALFACE", Quantity: 50, Unit: "muda"}},
	}
	d := synthesizeDetails(plantio)
	if d["qtd_utilizada"] != 50.0 || d["metodo_propagacao"] != "Muda" {
		t.Errorf("plantio details = %v", d)
	}

	manejo := &models.Record{
		ActivityType: models.ActivityManejo,
		Items: []models.ActivityItem{{
			Product: "biofertilizante", Quantity: 10, Unit: "L",
			DoseVal: 2, DoseUnit: "ml/L",
		}},
	}
	d = synthesizeDetails(manejo)
	if d["insumo"] != "BIOFERTILIZANTE" {
		t.Errorf("manejo insumo = %v", d["insumo"])
	}
	if d["dosagem"] != 2.0 || d["unidade_dosagem"] != "ml/L" {
		t.Errorf("manejo dosagem = %v %v", d["dosagem"], d["unidade_dosagem"])
	}

	// Without an explicit dose, the applied quantity stands in.
	insumo := &models.Record{
		ActivityType: models.ActivityInsumo,
		Items:        []models.ActivityItem{{Product: "composto", Quantity: 200, Unit: "kg"}},
	}
	d = synthesizeDetails(insumo)
	if d["dosagem"] != 200.0 || d["unidade_dosagem"] != "kg" {
		t.Errorf("insumo dosagem = %v %v", d["dosagem"], d["unidade_dosagem"])
	}

	colheita := &models.Record{
		ActivityType: models.ActivityColheita,
		Items:        []models.ActivityItem{{Product: "TOMATE", Quantity: 20, Unit: "kg"}},
	}
	d = synthesizeDetails(colheita)
	if d["qtd"] != 20.0 || d["unidade"] != "kg" {
		t.Errorf("colheita details = %v", d)
	}

	venda := &models.Record{ActivityType: models.ActivityVenda}
	if d = synthesizeDetails(venda); d != nil {
		t.Errorf("venda details = %v, want nil", d)
	}
}

func TestProtectedStateError(t *testing.T) {
	for _, status := range models.ProtectedStatuses {
		if !models.IsProtectedStatus(status) {
			t.Errorf("%q should be protected", status)
		}
	}
	if models.IsProtectedStatus("Rascunho") {
		t.Error("Rascunho should be editable")
	}

	err := &ProtectedStateError{RecordID: 42, Status: "Finalizado"}
	if !strings.Contains(err.Error(), "Finalizado") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestUpdateRecordRefusesProtectedBeforeWriting(t *testing.T) {
	d := &recordingDriver{status: "Finalizado"}
	svc := NewStorageService(newRecordingDB(t, d), nil)

	err := svc.UpdateRecord(context.Background(), 7, map[string]any{"observacao": "corrigido"})
	var protected *ProtectedStateError
	if !errors.As(err, &protected) {
		t.Fatalf("err = %v, want ProtectedStateError", err)
	}
	if protected.Status != "Finalizado" {
		t.Errorf("status = %q", protected.Status)
	}
	if d.execs != 0 {
		t.Errorf("protected record reached the write path %d times", d.execs)
	}
}

func TestUpdateRecordWritesEditableDraft(t *testing.T) {
	d := &recordingDriver{status: "Rascunho"}
	svc := NewStorageService(newRecordingDB(t, d), nil)

	changes := map[string]any{"observacao": "corrigido", "papel": "ignorado"}
	if err := svc.UpdateRecord(context.Background(), 7, changes); err != nil {
		t.Fatal(err)
	}
	if d.execs != 1 {
		t.Errorf("execs = %d, want 1", d.execs)
	}
}

func TestGetRecordMigratesLegacyPayload(t *testing.T) {
	payload := []byte(`{"produto": "tomate", "quantidade": 20, "unidade": "kg", "local": "Talhão 2, canteiro 5"}`)
	d := &recordingDriver{
		recordRow: []driver.Value{
			int64(7), int64(1), "Colheita",
			time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), "",
			payload, nil, nil, nil, nil, nil, nil, nil, nil, "Rascunho", nil,
		},
	}
	svc := NewStorageService(newRecordingDB(t, d), nil)

	rec, err := svc.GetRecord(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(rec.Items))
	}
	item := rec.Items[0]
	if item.Product != "tomate" || item.Quantity != 20 || item.Unit != "kg" {
		t.Errorf("item = %+v", item)
	}
	if item.Location.Plot != "Talhão 2" || item.Location.Bed != "5" {
		t.Errorf("location = %+v", item.Location)
	}
	if rec.System != models.SystemMonoculture {
		t.Errorf("system = %q", rec.System)
	}
	if rec.LocationText != "Talhão 2, canteiro 5" {
		t.Errorf("location text = %q", rec.LocationText)
	}
}
