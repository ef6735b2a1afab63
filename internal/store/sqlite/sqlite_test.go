package sqlite

import (
	"context"
	"testing"

	"smsink/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("failed to ensure schema: %v", err)
	}
	return s
}

func strptr(s string) *string { return &s }

func mustInsert(t *testing.T, s *SQLiteStore, msg *store.Message) store.InsertResult {
	t.Helper()
	res, err := s.Insert(context.Background(), msg)
	if err != nil {
		t.Fatalf("insert %s: %v", msg.MessageID, err)
	}
	return res
}

func TestSchemaPresent(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	ok, err := s.SchemaPresent(context.Background())
	if err != nil {
		t.Fatalf("SchemaPresent before EnsureSchema: %v", err)
	}
	if ok {
		t.Error("schema should be absent before EnsureSchema")
	}

	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	// EnsureSchema is idempotent.
	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}

	ok, err = s.SchemaPresent(context.Background())
	if err != nil {
		t.Fatalf("SchemaPresent after EnsureSchema: %v", err)
	}
	if !ok {
		t.Error("schema should be present after EnsureSchema")
	}
}

func TestInsertIdempotent(t *testing.T) {
	s := newTestStore(t)

	first := &store.Message{
		MessageID:  "m1",
		FromMSISDN: "+1000",
		ToMSISDN:   "+2000",
		TS:         "2025-01-15T10:00:00Z",
		Text:       strptr("original"),
	}
	res := mustInsert(t, s, first)
	if res.Duplicate {
		t.Error("first insert should not be a duplicate")
	}
	if first.CreatedAt == "" {
		t.Error("insert should assign created_at")
	}

	// Same id, different fields: must be reported as duplicate and must not
	// overwrite anything.
	second := &store.Message{
		MessageID:  "m1",
		FromMSISDN: "+9999",
		ToMSISDN:   "+8888",
		TS:         "2025-02-01T00:00:00Z",
		Text:       strptr("overwrite attempt"),
	}
	res = mustInsert(t, s, second)
	if !res.Duplicate {
		t.Error("second insert with same id should be a duplicate")
	}

	page, err := s.List(context.Background(), store.Query{Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 1 || len(page.Messages) != 1 {
		t.Fatalf("expected exactly one row, got total=%d len=%d", page.Total, len(page.Messages))
	}
	got := page.Messages[0]
	if got.FromMSISDN != "+1000" || got.TS != "2025-01-15T10:00:00Z" || got.Text == nil || *got.Text != "original" {
		t.Errorf("duplicate insert overwrote the row: %+v", got)
	}
}

func TestInsertConcurrentSameID(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir + "/app.db")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()
	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	const workers = 8
	results := make(chan store.InsertResult, workers)
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		go func() {
			res, err := s.Insert(context.Background(), &store.Message{
				MessageID:  "race",
				FromMSISDN: "+1000",
				ToMSISDN:   "+2000",
				TS:         "2025-01-15T10:00:00Z",
			})
			results <- res
			errs <- err
		}()
	}

	created := 0
	for i := 0; i < workers; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("concurrent insert: %v", err)
		}
		if res := <-results; !res.Duplicate {
			created++
		}
	}
	if created != 1 {
		t.Errorf("exactly one insert should report created, got %d", created)
	}

	page, err := s.List(context.Background(), store.Query{Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 1 {
		t.Errorf("exactly one row should persist, got %d", page.Total)
	}
}

func seedMessages(t *testing.T, s *SQLiteStore) {
	t.Helper()
	mustInsert(t, s, &store.Message{MessageID: "m1", FromMSISDN: "+919876543210", ToMSISDN: "+14155550100", TS: "2025-01-15T10:00:00Z", Text: strptr("Hello Alpha")})
	mustInsert(t, s, &store.Message{MessageID: "m2", FromMSISDN: "+919876543210", ToMSISDN: "+14155550100", TS: "2025-01-15T10:00:00Z", Text: strptr("hello beta")})
	mustInsert(t, s, &store.Message{MessageID: "m3", FromMSISDN: "+14155550100", ToMSISDN: "+919876543210", TS: "2025-01-15T11:00:00Z", Text: strptr("Gamma")})
}

func ids(page *store.Page) []string {
	out := make([]string, 0, len(page.Messages))
	for _, m := range page.Messages {
		out = append(out, m.MessageID)
	}
	return out
}

func TestListOrderingAndPagination(t *testing.T) {
	s := newTestStore(t)
	seedMessages(t, s)

	page, err := s.List(context.Background(), store.Query{Limit: 2, Offset: 0})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 3 {
		t.Errorf("total = %d, want 3", page.Total)
	}
	// m1 and m2 share a ts; message_id breaks the tie.
	if got := ids(page); len(got) != 2 || got[0] != "m1" || got[1] != "m2" {
		t.Errorf("first page = %v, want [m1 m2]", got)
	}

	page, err = s.List(context.Background(), store.Query{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("List offset 2: %v", err)
	}
	if page.Total != 3 {
		t.Errorf("total = %d, want 3 regardless of offset", page.Total)
	}
	if got := ids(page); len(got) != 1 || got[0] != "m3" {
		t.Errorf("second page = %v, want [m3]", got)
	}
}

func TestListFilters(t *testing.T) {
	s := newTestStore(t)
	seedMessages(t, s)
	ctx := context.Background()

	page, err := s.List(ctx, store.Query{Limit: 10, From: "+14155550100"})
	if err != nil {
		t.Fatalf("List from: %v", err)
	}
	if page.Total != 1 || ids(page)[0] != "m3" {
		t.Errorf("from filter: got %v total=%d, want [m3] total=1", ids(page), page.Total)
	}

	page, err = s.List(ctx, store.Query{Limit: 10, Since: "2025-01-15T11:00:00Z"})
	if err != nil {
		t.Fatalf("List since: %v", err)
	}
	if page.Total != 1 || ids(page)[0] != "m3" {
		t.Errorf("since filter: got %v, want [m3]", ids(page))
	}

	// Case-insensitive substring match.
	page, err = s.List(ctx, store.Query{Limit: 10, Text: strptr("ALPHA")})
	if err != nil {
		t.Fatalf("List q: %v", err)
	}
	if page.Total != 1 || ids(page)[0] != "m1" {
		t.Errorf("text filter: got %v, want [m1]", ids(page))
	}

	// Filters AND together: m3 matches the from filter but not the text.
	page, err = s.List(ctx, store.Query{Limit: 10, From: "+14155550100", Text: strptr("hello")})
	if err != nil {
		t.Fatalf("List combined: %v", err)
	}
	if page.Total != 0 {
		t.Errorf("combined filters: total = %d, want 0", page.Total)
	}

	// Empty substring matches everything, including NULL text.
	mustInsert(t, s, &store.Message{MessageID: "m4", FromMSISDN: "+3000", ToMSISDN: "+4000", TS: "2025-01-16T00:00:00Z"})
	page, err = s.List(ctx, store.Query{Limit: 10, Text: strptr("")})
	if err != nil {
		t.Fatalf("List empty q: %v", err)
	}
	if page.Total != 4 {
		t.Errorf("empty substring: total = %d, want 4", page.Total)
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats empty: %v", err)
	}
	if st.TotalMessages != 0 || st.SendersCount != 0 || len(st.PerSender) != 0 {
		t.Errorf("empty stats: %+v", st)
	}
	if st.FirstTS != nil || st.LastTS != nil {
		t.Error("ts range should be nil with no rows")
	}

	seedMessages(t, s)

	st, err = s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalMessages != 3 {
		t.Errorf("TotalMessages = %d, want 3", st.TotalMessages)
	}
	if st.SendersCount != 2 {
		t.Errorf("SendersCount = %d, want 2", st.SendersCount)
	}
	if len(st.PerSender) != 2 {
		t.Fatalf("PerSender len = %d, want 2", len(st.PerSender))
	}
	if st.PerSender[0].From != "+919876543210" || st.PerSender[0].Count != 2 {
		t.Errorf("top sender = %+v, want +919876543210 with 2", st.PerSender[0])
	}
	if st.FirstTS == nil || *st.FirstTS != "2025-01-15T10:00:00Z" {
		t.Errorf("FirstTS = %v, want 2025-01-15T10:00:00Z", st.FirstTS)
	}
	if st.LastTS == nil || *st.LastTS != "2025-01-15T11:00:00Z" {
		t.Errorf("LastTS = %v, want 2025-01-15T11:00:00Z", st.LastTS)
	}
}

func TestDatabasePath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"data/app.db", "data/app.db"},
		{":memory:", ":memory:"},
		{"sqlite:///data/app.db", "/data/app.db"},
		{"sqlite:/data/app.db", "/data/app.db"},
	}
	for _, tc := range cases {
		got, err := databasePath(tc.in)
		if err != nil {
			t.Errorf("databasePath(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("databasePath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	if _, err := databasePath("sqlite://"); err == nil {
		t.Error("empty path should be rejected")
	}
}
