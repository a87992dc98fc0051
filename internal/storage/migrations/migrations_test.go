package migrations

import (
	"strings"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	sql := `-- header comment
CREATE TABLE a (x Int32);

-- second; still a comment
CREATE TABLE b (y String DEFAULT 'a;b', z String DEFAULT 'it''s') ENGINE = Memory; -- trailing
`
	stmts := splitStatements(sql)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(stmts), stmts)
	}
	if stmts[0] != "CREATE TABLE a (x Int32)" {
		t.Errorf("unexpected first statement %q", stmts[0])
	}
	if !strings.Contains(stmts[1], "DEFAULT 'a;b'") || !strings.Contains(stmts[1], "'it''s'") {
		t.Errorf("quoted literals not preserved: %q", stmts[1])
	}
}

func TestSplitStatements_BackslashEscape(t *testing.T) {
	stmts := splitStatements(`SELECT 'a\';b'; SELECT 2`)
	if len(stmts) != 2 || stmts[0] != `SELECT 'a\';b'` {
		t.Errorf("unexpected statements %q", stmts)
	}
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default:@localhost:9000/prices")
	if err != nil || db != "prices" {
		t.Errorf("databaseFromDSN = %q, %v", db, err)
	}
	if _, err := databaseFromDSN("clickhouse://localhost:9000"); err == nil {
		t.Error("expected error for dsn without database")
	}
}

func TestQuoteIdent(t *testing.T) {
	if got := quoteIdent("prices"); got != "`prices`" {
		t.Errorf("quoteIdent = %s", got)
	}
}

func TestEmbeddedScripts(t *testing.T) {
	pg, err := scripts(PostgresFS, "postgres")
	if err != nil {
		t.Fatalf("postgres scripts: %v", err)
	}
	var names []string
	for _, s := range pg {
		names = append(names, s.name)
	}
	want := "001_backtest_runs.sql,002_backtest_trades.sql,003_equity_points.sql"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("postgres order = %s, want %s", got, want)
	}

	ch, err := scripts(ClickhouseFS, "clickhouse")
	if err != nil {
		t.Fatalf("clickhouse scripts: %v", err)
	}
	if len(ch) != 1 {
		t.Fatalf("expected 1 clickhouse script, got %d", len(ch))
	}
	stmts := splitStatements(ch[0].sql)
	if len(stmts) != 1 || !strings.HasPrefix(stmts[0], "CREATE TABLE IF NOT EXISTS price_series") {
		t.Errorf("unexpected clickhouse statements %q", stmts)
	}
}
