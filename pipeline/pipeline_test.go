package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/payroll"
	"github.com/xraph/payroll/artifact"
	"github.com/xraph/payroll/cache"
	"github.com/xraph/payroll/directory"
	"github.com/xraph/payroll/document"
	"github.com/xraph/payroll/notify"
	"github.com/xraph/payroll/pipeline"
	"github.com/xraph/payroll/run"
	"github.com/xraph/payroll/scope"
	"github.com/xraph/payroll/store/memory"
)

// ──────────────────────────────────────────────────
// Fixtures
// ──────────────────────────────────────────────────

var march = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func testDirectory() *directory.Static {
	return directory.NewStatic(directory.File{
		Users: []*directory.User{
			{ID: 1, Username: "ana", Email: "ana@example.com", Roles: []string{"manager"}},
			{ID: 2, Username: "bob", Email: "bob@example.com", Roles: []string{"manager"}},
			{ID: 5, Username: "dan", Email: "dan@example.com", Roles: []string{"hr"}},
			{ID: 9, Username: "ana-hr", Email: "ANA@example.com", Roles: []string{"hr"}},
		},
		Employees: []*directory.Employee{
			{ID: 10, Code: "E001", FirstName: "Ion", LastName: "Pop", Email: "ion@example.com", ManagerID: 1},
			{ID: 11, Code: "E002", FirstName: "Mara", LastName: "Ilie", Email: "mara@example.com", ManagerID: 1},
			{ID: 12, Code: "E003", FirstName: "Radu", LastName: "Stan", Email: "radu@example.com", ManagerID: 1},
		},
		Salaries: []*directory.Salary{
			{EmployeeID: 10, Month: march, BaseSalary: 650000, WorkingDays: 21, Total: 650000},
			{EmployeeID: 12, Month: march, BaseSalary: 720000, WorkingDays: 20, VacationDays: 1, Bonuses: 10000, Total: 730000},
		},
	})
}

// countingBuilder wraps a builder and counts calls. fail, when set,
// replaces every result with a plain error.
type countingBuilder struct {
	inner   document.Builder
	slips   atomic.Int64
	reports atomic.Int64
	fail    error
}

func (b *countingBuilder) BuildSlip(ctx context.Context, e *directory.Employee, period time.Time) (*document.Document, error) {
	b.slips.Add(1)
	if b.fail != nil {
		return nil, b.fail
	}
	return b.inner.BuildSlip(ctx, e, period)
}

func (b *countingBuilder) BuildAggregate(ctx context.Context, emps []*directory.Employee, period time.Time) (*document.Document, error) {
	b.reports.Add(1)
	if b.fail != nil {
		return nil, b.fail
	}
	return b.inner.BuildAggregate(ctx, emps, period)
}

// testClock is a settable time source.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	orch    *pipeline.Orchestrator
	store   *memory.Store
	builder *countingBuilder
	sender  *notify.Recorder
	clock   *testClock
}

func newFixture(t *testing.T, opts ...pipeline.Option) *fixture {
	t.Helper()
	dir := testDirectory()
	f := &fixture{
		store:   memory.New(),
		builder: &countingBuilder{inner: document.NewTabular(dir, "Acme")},
		sender:  &notify.Recorder{},
		clock:   &testClock{now: time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)},
	}
	base := []pipeline.Option{
		pipeline.WithStore(f.store),
		pipeline.WithClock(f.clock.Now),
	}
	orch, err := pipeline.New(dir, f.builder, f.sender, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.orch = orch
	return f
}

func decode[T any](t *testing.T, out *pipeline.Outcome) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(out.Body, &v); err != nil {
		t.Fatalf("decode body %s: %v", out.Body, err)
	}
	return v
}

// ──────────────────────────────────────────────────
// Construction
// ──────────────────────────────────────────────────

func TestNew_RequiresStore(t *testing.T) {
	dir := testDirectory()
	_, err := pipeline.New(dir, document.NewTabular(dir, "Acme"), &notify.Recorder{})
	if !errors.Is(err, payroll.ErrNoStore) {
		t.Fatalf("New error = %v, want ErrNoStore", err)
	}
}

func TestExecute_MissingKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, key := range []string{"", "   "} {
		if _, err := f.orch.CreateIndividualDocuments(ctx, 1, key); !errors.Is(err, payroll.ErrMissingKey) {
			t.Errorf("key %q: error = %v, want ErrMissingKey", key, err)
		}
	}
	if n := f.builder.slips.Load(); n != 0 {
		t.Errorf("builder called %d times for rejected requests", n)
	}
}

func TestExecute_UnknownOperation(t *testing.T) {
	f := newFixture(t)
	if _, err := f.orch.Execute(context.Background(), run.Operation("reindex"), 1, "k"); err == nil {
		t.Fatal("expected error for unknown operation")
	}
}

// ──────────────────────────────────────────────────
// Individual documents
// ──────────────────────────────────────────────────

func TestCreateIndividualDocuments_IsolatesMissingSalary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.orch.CreateIndividualDocuments(ctx, 1, "k1")
	if err != nil {
		t.Fatalf("CreateIndividualDocuments: %v", err)
	}
	if out.Status != pipeline.StatusOK {
		t.Fatalf("status = %s, want ok", out.Status)
	}

	res := decode[pipeline.IndividualResult](t, out)
	if len(res.Generated) != 2 || len(res.Errors) != 1 {
		t.Fatalf("result = %+v, want 2 generated and 1 error", res)
	}
	if res.Generated[0].Recipient != "E001" || res.Generated[1].Recipient != "E003" {
		t.Errorf("generated = %+v, want E001 and E003 in order", res.Generated)
	}
	if res.Errors[0].Recipient != "E002" || res.Errors[0].Error != "Salary slip not found for this month" {
		t.Errorf("error entry = %+v", res.Errors[0])
	}

	latest, err := f.orch.Latest(ctx, artifact.SlipPrefix("E001"))
	if err != nil {
		t.Fatalf("Latest E001: %v", err)
	}
	if latest.ID.String() != res.Generated[0].Artifact {
		t.Errorf("latest = %s, want %s", latest.ID, res.Generated[0].Artifact)
	}
	if _, err := f.orch.Latest(ctx, artifact.SlipPrefix("E002")); !errors.Is(err, payroll.ErrArtifactNotFound) {
		t.Errorf("Latest E002 error = %v, want ErrArtifactNotFound", err)
	}
	if n := len(f.sender.Sent()); n != 0 {
		t.Errorf("create sent %d emails, want 0", n)
	}
}

// blockingBuilder holds the first slip build until released.
type blockingBuilder struct {
	document.Builder
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingBuilder) BuildSlip(ctx context.Context, e *directory.Employee, period time.Time) (*document.Document, error) {
	b.once.Do(func() {
		close(b.entered)
		<-b.release
	})
	return b.Builder.BuildSlip(ctx, e, period)
}

func TestCreateIndividualDocuments_ConcurrentSameKey(t *testing.T) {
	dir := testDirectory()
	b := &blockingBuilder{
		Builder: document.NewTabular(dir, "Acme"),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	orch, err := pipeline.New(dir, b, &notify.Recorder{}, pipeline.WithStore(memory.New()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	var (
		first    *pipeline.Outcome
		firstErr error
		done     = make(chan struct{})
	)
	go func() {
		defer close(done)
		first, firstErr = orch.CreateIndividualDocuments(ctx, 1, "k1")
	}()

	<-b.entered
	_, err = orch.CreateIndividualDocuments(ctx, 1, "k1")
	if !errors.Is(err, payroll.ErrDuplicateKey) {
		t.Errorf("second call error = %v, want ErrDuplicateKey", err)
	}

	close(b.release)
	<-done
	if firstErr != nil {
		t.Fatalf("first call: %v", firstErr)
	}
	if first.Status != pipeline.StatusOK || first.Cached {
		t.Errorf("first outcome = %+v, want fresh ok", first)
	}
}

func TestExecute_ManyConcurrentCallersRunOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const callers = 30
	var (
		wg     sync.WaitGroup
		fresh  atomic.Int64
		served atomic.Int64
		dupes  atomic.Int64
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := f.orch.CreateIndividualDocuments(ctx, 1, "same")
			switch {
			case errors.Is(err, payroll.ErrDuplicateKey):
				dupes.Add(1)
			case err != nil:
				t.Errorf("unexpected error: %v", err)
			case out.Cached:
				served.Add(1)
			default:
				fresh.Add(1)
			}
		}()
	}
	wg.Wait()

	if fresh.Load() != 1 {
		t.Errorf("fresh executions = %d, want 1", fresh.Load())
	}
	if fresh.Load()+served.Load()+dupes.Load() != callers {
		t.Errorf("accounted for %d callers, want %d", fresh.Load()+served.Load()+dupes.Load(), callers)
	}
	if n := f.builder.slips.Load(); n != 3 {
		t.Errorf("builder slip calls = %d, want 3", n)
	}
}

func TestSendIndividualDocuments_PartialFailure(t *testing.T) {
	f := newFixture(t)
	f.sender.Fail = func(m *notify.Message) error {
		if m.To == "radu@example.com" {
			return errors.New("mailbox unavailable")
		}
		return nil
	}

	out, err := f.orch.SendIndividualDocuments(context.Background(), 1, "send-1")
	if err != nil {
		t.Fatalf("SendIndividualDocuments: %v", err)
	}
	res := decode[pipeline.SendResult](t, out)
	if res.Sent != 1 || res.Total != 3 {
		t.Fatalf("result = %+v, want sent 1 of 3", res)
	}
	if len(res.Errors) != 2 {
		t.Fatalf("errors = %+v, want 2", res.Errors)
	}
	if res.Errors[0].Recipient != "E002" || res.Errors[1].Recipient != "E003" {
		t.Errorf("failed recipients = %+v, want E002 and E003", res.Errors)
	}
	for _, e := range res.Errors {
		if e.Error == "" {
			t.Errorf("failure for %s has no reason", e.Recipient)
		}
	}
	if res.Errors[0].Error != "Salary slip not found for this month" {
		t.Errorf("validation reason = %q, want the bare reason", res.Errors[0].Error)
	}
	if !strings.Contains(res.Errors[1].Error, "mailbox unavailable") {
		t.Errorf("transport failure reason = %q", res.Errors[1].Error)
	}

	sent := f.sender.Sent()
	if len(sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(sent))
	}
	m := sent[0]
	if m.To != "ion@example.com" || m.Subject != "Your Salary Slip" {
		t.Errorf("message = %s / %s", m.To, m.Subject)
	}
	if !strings.HasPrefix(m.Body, "Dear Ion,") {
		t.Errorf("body = %q", m.Body)
	}
	if m.Attachment == nil || m.Attachment.Name != "salary_slip_E001.txt" {
		t.Errorf("attachment = %+v", m.Attachment)
	}
}

// brokenResults is a key store whose result cache is unreachable.
type brokenResults struct {
	*memory.Store
	puts atomic.Int64
}

func (b *brokenResults) GetResult(context.Context, scope.Scope, string) (*cache.Result, error) {
	return nil, payroll.ErrStoreUnavailable
}

func (b *brokenResults) PutResult(context.Context, *cache.Result) error {
	b.puts.Add(1)
	return payroll.ErrStoreUnavailable
}

func TestSendIndividualDocuments_CompletesWithBrokenCache(t *testing.T) {
	keys := &brokenResults{Store: memory.New()}
	f := newFixture(t, pipeline.WithKeyStore(keys))
	ctx := context.Background()

	out, err := f.orch.SendIndividualDocuments(ctx, 1, "send-1")
	if err != nil {
		t.Fatalf("SendIndividualDocuments: %v", err)
	}
	if out.Status != pipeline.StatusOK || out.Cached {
		t.Fatalf("outcome = %s cached=%v, want ok uncached", out.Status, out.Cached)
	}
	res := decode[pipeline.SendResult](t, out)
	if res.Sent != 2 || res.Total != 3 {
		t.Errorf("result = %+v, want sent 2 of 3", res)
	}
	if keys.puts.Load() != 1 {
		t.Errorf("cache puts = %d, want 1 attempt", keys.puts.Load())
	}

	// The guard still holds the key even though nothing was cached.
	if _, err := f.orch.SendIndividualDocuments(ctx, 1, "send-1"); !errors.Is(err, payroll.ErrDuplicateKey) {
		t.Errorf("retry error = %v, want ErrDuplicateKey", err)
	}
	if n := len(f.sender.Sent()); n != 2 {
		t.Errorf("sent %d emails, want 2", n)
	}
}

// fullArchive refuses artifacts for one prefix.
type fullArchive struct {
	*memory.Store
	prefix string
}

func (a *fullArchive) InsertArtifact(ctx context.Context, art *artifact.Artifact) error {
	if art.Prefix == a.prefix {
		return errors.New("storage full")
	}
	return a.Store.InsertArtifact(ctx, art)
}

func TestCreateIndividualDocuments_ArchiveFailureIsPerEmployee(t *testing.T) {
	arts := &fullArchive{Store: memory.New(), prefix: artifact.SlipPrefix("E001")}
	f := newFixture(t, pipeline.WithArtifactStore(arts))

	out, err := f.orch.CreateIndividualDocuments(context.Background(), 1, "k1")
	if err != nil {
		t.Fatalf("CreateIndividualDocuments: %v", err)
	}
	if out.Status != pipeline.StatusOK {
		t.Fatalf("status = %s, want ok", out.Status)
	}

	res := decode[pipeline.IndividualResult](t, out)
	if len(res.Generated) != 1 || res.Generated[0].Recipient != "E003" {
		t.Fatalf("generated = %+v, want only E003", res.Generated)
	}
	if len(res.Errors) != 2 {
		t.Fatalf("errors = %+v, want E001 and E002", res.Errors)
	}
	if res.Errors[0].Recipient != "E001" || !strings.Contains(res.Errors[0].Error, "storage full") {
		t.Errorf("archive failure entry = %+v", res.Errors[0])
	}
	if !strings.Contains(res.Errors[0].Error, "archive") {
		t.Errorf("archive failure reason = %q, want it attributed to the archive", res.Errors[0].Error)
	}
}

func TestSendIndividualDocuments_CacheHitIsByteIdentical(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.orch.SendIndividualDocuments(ctx, 1, "k2")
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	slips, sends := f.builder.slips.Load(), len(f.sender.Sent())

	second, err := f.orch.SendIndividualDocuments(ctx, 1, "k2")
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if !second.Cached {
		t.Fatal("expected cached outcome")
	}
	if string(second.Body) != string(first.Body) {
		t.Errorf("cached body = %s, want %s", second.Body, first.Body)
	}
	if second.Status != first.Status {
		t.Errorf("cached status = %s, want %s", second.Status, first.Status)
	}
	if f.builder.slips.Load() != slips || len(f.sender.Sent()) != sends {
		t.Error("cache hit reached the builder or the sender")
	}
}

func TestExecute_DuplicateAfterCacheExpiry(t *testing.T) {
	cfg := payroll.DefaultConfig()
	cfg.CacheTTL = time.Minute
	f := newFixture(t, pipeline.WithConfig(cfg))
	ctx := context.Background()

	if _, err := f.orch.CreateIndividualDocuments(ctx, 1, "k3"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	f.clock.Advance(2 * time.Minute)

	if _, err := f.orch.CreateIndividualDocuments(ctx, 1, "k3"); !errors.Is(err, payroll.ErrDuplicateKey) {
		t.Errorf("error = %v, want ErrDuplicateKey once the cached result expired", err)
	}
}

func TestExecute_KeysScopedPerOperationAndActor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	calls := []func() (*pipeline.Outcome, error){
		func() (*pipeline.Outcome, error) { return f.orch.CreateIndividualDocuments(ctx, 1, "shared") },
		func() (*pipeline.Outcome, error) { return f.orch.CreateAggregateReport(ctx, 1, "shared") },
		func() (*pipeline.Outcome, error) { return f.orch.CreateAggregateReport(ctx, 2, "shared") },
	}
	for i, call := range calls {
		out, err := call()
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if out.Cached {
			t.Errorf("call %d served from another scope's cache", i)
		}
	}
}

func TestCreateIndividualDocuments_BuilderFailureIsPerEmployee(t *testing.T) {
	f := newFixture(t)
	f.builder.fail = errors.New("renderer crashed")

	out, err := f.orch.CreateIndividualDocuments(context.Background(), 1, "k4")
	if err != nil {
		t.Fatalf("CreateIndividualDocuments: %v", err)
	}
	res := decode[pipeline.IndividualResult](t, out)
	if out.Status != pipeline.StatusOK || len(res.Generated) != 0 || len(res.Errors) != 3 {
		t.Fatalf("outcome = %s %+v, want ok with 3 errors", out.Status, res)
	}
	if !strings.Contains(res.Errors[0].Error, "renderer crashed") {
		t.Errorf("error = %q", res.Errors[0].Error)
	}
}

// ──────────────────────────────────────────────────
// Aggregate report
// ──────────────────────────────────────────────────

func TestSendAggregateReport_NoArchivedReport(t *testing.T) {
	f := newFixture(t)

	out, err := f.orch.SendAggregateReport(context.Background(), 1, "r1")
	if err != nil {
		t.Fatalf("SendAggregateReport: %v", err)
	}
	if out.Status != pipeline.StatusNotFound {
		t.Errorf("status = %s, want not_found", out.Status)
	}
	if got, want := string(out.Body), `{"sent":0,"errors":["No archived report found."]}`; got != want {
		t.Errorf("body = %s, want %s", got, want)
	}
	if n := len(f.sender.Sent()); n != 0 {
		t.Errorf("sent %d emails, want 0", n)
	}
}

func TestAggregateReport_CreateThenSend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.orch.CreateAggregateReport(ctx, 1, "c1")
	if err != nil {
		t.Fatalf("CreateAggregateReport: %v", err)
	}
	cres := decode[pipeline.AggregateResult](t, created)
	if cres.Sent != 1 || len(cres.Errors) != 0 || cres.Artifact == "" {
		t.Fatalf("create result = %+v", cres)
	}

	latest, err := f.orch.Latest(ctx, artifact.ReportPrefix(1))
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.MediaType != artifact.MediaTypeCSV {
		t.Errorf("media type = %s", latest.MediaType)
	}
	// E002 has no salary and is left out of the report.
	if rows := strings.Count(strings.TrimSpace(string(latest.Payload)), "\n"); rows != 2 {
		t.Errorf("report rows = %d, want 2:\n%s", rows, latest.Payload)
	}

	sent, err := f.orch.SendAggregateReport(ctx, 1, "s1")
	if err != nil {
		t.Fatalf("SendAggregateReport: %v", err)
	}
	sres := decode[pipeline.AggregateResult](t, sent)
	// ana appears as manager and, in another case, as hr: one email.
	if sres.Sent != 2 || sres.Total != 2 || len(sres.Errors) != 0 {
		t.Fatalf("send result = %+v, want 2 of 2", sres)
	}
	for _, m := range f.sender.Sent() {
		if m.Attachment == nil || m.Attachment.Name != "salary_report_1.csv" {
			t.Errorf("attachment = %+v", m.Attachment)
		}
	}
}

func TestSendAggregateReport_UsesLatestArtifact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []string
	for _, key := range []string{"c1", "c2", "c3"} {
		out, err := f.orch.CreateAggregateReport(ctx, 1, key)
		if err != nil {
			t.Fatalf("create %s: %v", key, err)
		}
		ids = append(ids, decode[pipeline.AggregateResult](t, out).Artifact)
	}

	latest, err := f.orch.Latest(ctx, artifact.ReportPrefix(1))
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.ID.String() != ids[2] {
		t.Errorf("latest = %s, want the third report %s", latest.ID, ids[2])
	}
}

func TestNoEmployees(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.orch.CreateAggregateReport(ctx, 2, "n1")
	if err != nil {
		t.Fatalf("CreateAggregateReport: %v", err)
	}
	if out.Status != pipeline.StatusNotFound {
		t.Errorf("status = %s, want not_found", out.Status)
	}
	if got, want := string(out.Body), `{"sent":0,"errors":["No employees found for this manager."]}`; got != want {
		t.Errorf("body = %s, want %s", got, want)
	}

	out, err = f.orch.SendIndividualDocuments(ctx, 2, "n2")
	if err != nil {
		t.Fatalf("SendIndividualDocuments: %v", err)
	}
	if out.Status != pipeline.StatusNotFound {
		t.Errorf("send status = %s, want not_found", out.Status)
	}

	out, err = f.orch.CreateIndividualDocuments(ctx, 2, "n3")
	if err != nil {
		t.Fatalf("CreateIndividualDocuments: %v", err)
	}
	res := decode[pipeline.IndividualResult](t, out)
	if out.Status != pipeline.StatusNotFound || len(res.Generated) != 0 || len(res.Errors) != 1 {
		t.Errorf("create outcome = %s %+v, want not_found with one error", out.Status, res)
	}
	if f.builder.reports.Load()+f.builder.slips.Load() != 0 {
		t.Error("builder called without employees")
	}
}

func TestCreateAggregateReport_ResourceFailure(t *testing.T) {
	f := newFixture(t)
	f.builder.fail = errors.New("disk full")
	ctx := context.Background()

	out, err := f.orch.CreateAggregateReport(ctx, 1, "f1")
	if err != nil {
		t.Fatalf("CreateAggregateReport: %v", err)
	}
	if out.Status != pipeline.StatusFailed {
		t.Fatalf("status = %s, want failed", out.Status)
	}
	var re *payroll.ResourceError
	if !errors.As(out.Err, &re) {
		t.Errorf("Err = %v, want ResourceError", out.Err)
	}
	res := decode[pipeline.AggregateResult](t, out)
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "disk full") {
		t.Errorf("body = %s", out.Body)
	}

	r, err := f.orch.Run(ctx, out.RunID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if r.State != run.StateFailed {
		t.Errorf("run state = %s, want failed", r.State)
	}
}

// ──────────────────────────────────────────────────
// Runs, helpers and maintenance
// ──────────────────────────────────────────────────

func TestRunHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.orch.SendIndividualDocuments(ctx, 1, "h1")
	if err != nil {
		t.Fatalf("SendIndividualDocuments: %v", err)
	}
	r, err := f.orch.Run(ctx, out.RunID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []run.State{run.StateAdmitted, run.StateBuilding, run.StateArchiving, run.StateDispatching, run.StateCompleted}
	if len(r.History) != len(want) {
		t.Fatalf("history = %+v", r.History)
	}
	for i, s := range want {
		if r.History[i].To != s {
			t.Errorf("history[%d] = %s, want %s", i, r.History[i].To, s)
		}
	}

	if _, err := f.orch.SendIndividualDocuments(ctx, 1, "h1"); err != nil {
		t.Fatalf("replay: %v", err)
	}
	runs, err := f.orch.Runs(ctx, run.ListOpts{Operation: run.OpSendIndividualDocuments})
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("runs = %d, want 2", len(runs))
	}
}

func TestBuildSlip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc, emp, err := f.orch.BuildSlip(ctx, 10)
	if err != nil {
		t.Fatalf("BuildSlip: %v", err)
	}
	if emp.Code != "E001" || !strings.Contains(string(doc.Payload), "March 2026") {
		t.Errorf("slip for %s:\n%s", emp.Code, doc.Payload)
	}

	if _, _, err := f.orch.BuildSlip(ctx, 11); !document.IsValidation(err) {
		t.Errorf("missing salary error = %v, want ValidationError", err)
	}
	if _, _, err := f.orch.BuildSlip(ctx, 999); !errors.Is(err, payroll.ErrEmployeeNotFound) {
		t.Errorf("unknown employee error = %v, want ErrEmployeeNotFound", err)
	}

	if arts, _ := f.store.ListArtifacts(ctx, artifact.ListOpts{}); len(arts) != 0 {
		t.Errorf("BuildSlip archived %d artifacts", len(arts))
	}
}

func TestCleanup(t *testing.T) {
	cfg := payroll.DefaultConfig()
	cfg.KeyRetention = time.Hour
	f := newFixture(t, pipeline.WithConfig(cfg))
	ctx := context.Background()

	if _, err := f.orch.CreateAggregateReport(ctx, 1, "old"); err != nil {
		t.Fatalf("create: %v", err)
	}
	f.clock.Advance(48 * time.Hour)
	if _, err := f.orch.CreateAggregateReport(ctx, 1, "new"); err != nil {
		t.Fatalf("create: %v", err)
	}
	f.clock.Advance(2 * time.Hour)

	rep, err := f.orch.Cleanup(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if rep.Artifacts != 1 || rep.Keys != 2 || rep.Results != 2 {
		t.Errorf("report = %+v, want 1 artifact, 2 keys, 2 results", rep)
	}
	if _, err := f.orch.Latest(ctx, artifact.ReportPrefix(1)); err != nil {
		t.Errorf("latest report was pruned: %v", err)
	}

	// The purged key can be used again.
	out, err := f.orch.CreateAggregateReport(ctx, 1, "old")
	if err != nil || out.Cached {
		t.Errorf("reuse of purged key: outcome %+v, err %v", out, err)
	}
}
