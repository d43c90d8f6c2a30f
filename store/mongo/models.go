package mongo

import (
	"time"

	"github.com/xraph/payroll/artifact"
	"github.com/xraph/payroll/cache"
	"github.com/xraph/payroll/id"
	"github.com/xraph/payroll/idempotency"
	"github.com/xraph/payroll/run"
	"github.com/xraph/payroll/scope"
)

// ── Key model ─────────────────────────────────────────────────────

type keyModel struct {
	ID         string     `bson:"_id"`
	Operation  string     `bson:"operation"`
	Actor      int64      `bson:"actor"`
	Key        string     `bson:"key"`
	AcceptedAt time.Time  `bson:"accepted_at"`
	ExpiresAt  *time.Time `bson:"expires_at,omitempty"`
}

func docID(sc scope.Scope, key string) string {
	return sc.String() + "|" + key
}

func toKeyModel(r *idempotency.Record) *keyModel {
	return &keyModel{
		ID:         docID(r.Scope, r.Key),
		Operation:  r.Scope.Operation,
		Actor:      r.Scope.Actor,
		Key:        r.Key,
		AcceptedAt: r.AcceptedAt,
		ExpiresAt:  r.ExpiresAt,
	}
}

// ── Result model ──────────────────────────────────────────────────

type resultModel struct {
	ID        string    `bson:"_id"`
	Operation string    `bson:"operation"`
	Actor     int64     `bson:"actor"`
	Key       string    `bson:"key"`
	Status    string    `bson:"status"`
	Payload   []byte    `bson:"payload"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}

func toResultModel(r *cache.Result) *resultModel {
	return &resultModel{
		ID:        docID(r.Scope, r.Key),
		Operation: r.Scope.Operation,
		Actor:     r.Scope.Actor,
		Key:       r.Key,
		Status:    r.Status,
		Payload:   r.Payload,
		CreatedAt: r.CreatedAt,
		ExpiresAt: r.ExpiresAt,
	}
}

func fromResultModel(m *resultModel) *cache.Result {
	return &cache.Result{
		Scope:     scope.New(m.Operation, m.Actor),
		Key:       m.Key,
		Status:    m.Status,
		Payload:   m.Payload,
		CreatedAt: m.CreatedAt.UTC(),
		ExpiresAt: m.ExpiresAt.UTC(),
	}
}

// ── Artifact model ────────────────────────────────────────────────

type artifactModel struct {
	ID        string    `bson:"_id"`
	Prefix    string    `bson:"prefix"`
	StampNS   int64     `bson:"stamp_ns"`
	Seq       int64     `bson:"seq"`
	CreatedAt time.Time `bson:"created_at"`
	MediaType string    `bson:"media_type"`
	Payload   []byte    `bson:"payload"`
	Size      int64     `bson:"size"`
}

// headModel records the newest stamp written for a prefix.
type headModel struct {
	Prefix     string `bson:"_id"`
	StampNS    int64  `bson:"stamp_ns"`
	Seq        int64  `bson:"seq"`
	ArtifactID string `bson:"artifact_id"`
}

func toArtifactModel(a *artifact.Artifact) *artifactModel {
	return &artifactModel{
		ID:        a.ID.String(),
		Prefix:    a.Prefix,
		StampNS:   a.CreatedAt.UnixNano(),
		Seq:       a.Seq,
		CreatedAt: a.CreatedAt,
		MediaType: a.MediaType,
		Payload:   a.Payload,
		Size:      a.Size,
	}
}

func fromArtifactModel(m *artifactModel) (*artifact.Artifact, error) {
	artifactID, err := id.ParseArtifactID(m.ID)
	if err != nil {
		return nil, err
	}
	return &artifact.Artifact{
		ID:        artifactID,
		Prefix:    m.Prefix,
		CreatedAt: time.Unix(0, m.StampNS).UTC(),
		Seq:       m.Seq,
		MediaType: m.MediaType,
		Payload:   m.Payload,
		Size:      m.Size,
	}, nil
}

// ── Run model ─────────────────────────────────────────────────────

type transitionModel struct {
	From string    `bson:"from"`
	To   string    `bson:"to"`
	At   time.Time `bson:"at"`
}

type runModel struct {
	ID          string            `bson:"_id"`
	Operation   string            `bson:"operation"`
	Actor       int64             `bson:"actor"`
	Key         string            `bson:"key"`
	State       string            `bson:"state"`
	StartedAt   time.Time         `bson:"started_at"`
	CompletedAt *time.Time        `bson:"completed_at,omitempty"`
	LastError   string            `bson:"last_error,omitempty"`
	History     []transitionModel `bson:"history"`
}

func toRunModel(r *run.Run) *runModel {
	m := &runModel{
		ID:          r.ID.String(),
		Operation:   string(r.Operation),
		Actor:       r.Actor,
		Key:         r.Key,
		State:       string(r.State),
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
		LastError:   r.LastError,
		History:     make([]transitionModel, 0, len(r.History)),
	}
	for _, t := range r.History {
		m.History = append(m.History, transitionModel{From: string(t.From), To: string(t.To), At: t.At})
	}
	return m
}

func fromRunModel(m *runModel) (*run.Run, error) {
	runID, err := id.ParseRunID(m.ID)
	if err != nil {
		return nil, err
	}
	r := &run.Run{
		ID:        runID,
		Operation: run.Operation(m.Operation),
		Actor:     m.Actor,
		Key:       m.Key,
		State:     run.State(m.State),
		StartedAt: m.StartedAt.UTC(),
		LastError: m.LastError,
	}
	if m.CompletedAt != nil {
		t := m.CompletedAt.UTC()
		r.CompletedAt = &t
	}
	for _, t := range m.History {
		r.History = append(r.History, run.Transition{From: run.State(t.From), To: run.State(t.To), At: t.At.UTC()})
	}
	return r, nil
}
