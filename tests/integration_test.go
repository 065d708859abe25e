package tests

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/vhoang/agritrace/internal/adapter/storage"
	"github.com/vhoang/agritrace/internal/core/domain"
	"github.com/vhoang/agritrace/internal/core/service"
)

type testEnv struct {
	redis   *redis.Client
	mysql   *sql.DB
	gateway *storage.RedisAdapter
	journal *storage.MySQLAdapter
	cleanup func()
}

func setupTestEnv(t *testing.T) *testEnv {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "root:root@tcp(localhost:3306)/agritrace?parseTime=true"
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	journal := storage.NewMySQLAdapter(db)
	if err := journal.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate journal: %v", err)
	}

	return &testEnv{
		redis:   rdb,
		mysql:   db,
		gateway: storage.NewRedisAdapter(rdb),
		journal: journal,
		cleanup: func() {
			rdb.Close()
			db.Close()
		},
	}
}

// TestIntegration_FullCustodyFlow drives the whole chain against real
// backends: Redis carries the settlement balances and MySQL journals the
// notifications emitted along the way.
func TestIntegration_FullCustodyFlow(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	const (
		adminAddr    = "it-admin"
		producerAddr = "it-producer"
		distAddr     = "it-distributor"
		shopAddr     = "it-retailer"
		buyerAddr    = "it-buyer"
	)

	// Clean balances from previous runs.
	for _, addr := range []string{producerAddr, distAddr, shopAddr} {
		env.redis.Del(ctx, "balance:"+addr)
	}

	ledger := service.New(adminAddr, env.gateway)

	if err := ledger.RequestAdmission(ctx, producerAddr, domain.RoleProducer, nil); err != nil {
		t.Fatalf("request admission: %v", err)
	}
	if err := ledger.ApproveAdmission(ctx, adminAddr, producerAddr, domain.RoleProducer); err != nil {
		t.Fatalf("approve producer: %v", err)
	}
	if err := ledger.RequestAdmission(ctx, distAddr, domain.RoleDistributor, nil); err != nil {
		t.Fatalf("request admission: %v", err)
	}
	if err := ledger.ApproveAdmission(ctx, adminAddr, distAddr, domain.RoleDistributor); err != nil {
		t.Fatalf("approve distributor: %v", err)
	}

	batchID, err := ledger.CreateProduction(ctx, producerAddr, service.ProductionInput{
		Name: "arabica", Period: "2025-wet", Quantity: 100, UnitPrice: 5,
		Visibility: domain.VisibilityPublic,
	})
	if err != nil {
		t.Fatalf("create production: %v", err)
	}

	distID, err := ledger.Acquire(ctx, distAddr, batchID, 40, 200)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// The producer got paid through Redis.
	balance, err := env.gateway.Balance(ctx, producerAddr)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 200 {
		t.Errorf("expected producer balance 200, got %d", balance)
	}

	packIDs, err := ledger.SplitDistribution(ctx, distAddr, distID,
		[]int64{15, 25}, []int64{7, 7}, []string{"", ""})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if err := ledger.ListPack(ctx, distAddr, packIDs[0], domain.VisibilityPublic, ""); err != nil {
		t.Fatalf("list pack: %v", err)
	}

	reqID, err := ledger.OpenTransfer(ctx, shopAddr, packIDs[0], 15, true, 105)
	if err != nil {
		t.Fatalf("open transfer: %v", err)
	}
	if err := ledger.ResolveTransfer(ctx, distAddr, reqID, true); err != nil {
		t.Fatalf("resolve transfer: %v", err)
	}
	if got := ledger.RoleOf(shopAddr); got != domain.RoleRetailer {
		t.Errorf("expected retailer promotion, got %s", got)
	}

	unitID := ledger.OwnUnits(shopAddr)[0].ID
	if err := ledger.ListUnitForBuyers(ctx, shopAddr, unitID); err != nil {
		t.Fatalf("list unit: %v", err)
	}
	saleID, err := ledger.Sell(ctx, buyerAddr, unitID, 5, 35)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}

	// Drain the notification feed into the journal the way the server's
	// workers do.
	ledger.Close()
	var journaled int
	for ev := range ledger.Events() {
		if err := env.journal.AppendEvent(ctx, ev); err != nil {
			t.Fatalf("journal append: %v", err)
		}
		if ev.Kind == domain.EventUnitSold {
			sale, err := ledger.Sale(ev.RecordIDs[0])
			if err != nil {
				t.Fatalf("sale lookup: %v", err)
			}
			if err := env.journal.AppendSale(ctx, sale); err != nil {
				t.Fatalf("sale journal: %v", err)
			}
		}
		journaled++
		defer func(id string) {
			env.mysql.ExecContext(ctx, `DELETE FROM ledger_events WHERE id = ?`, id)
		}(ev.ID)
	}
	if journaled == 0 {
		t.Fatal("no notifications were emitted")
	}
	defer env.mysql.ExecContext(ctx, `DELETE FROM sales WHERE id = ?`, saleID)

	trace, err := ledger.TraceUnit(unitID)
	if err != nil {
		t.Fatalf("trace: %v", err)
	}
	if trace.Production.ID != batchID || trace.Distribution.ID != distID || trace.Pack.ID != packIDs[0] {
		t.Errorf("trace chain mismatch: %+v", trace)
	}
}

// TestIntegration_SnapshotRestart proves a ledger survives a restart via the
// bbolt snapshot store.
func TestIntegration_SnapshotRestart(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	const (
		adminAddr    = "snap-admin"
		producerAddr = "snap-producer"
	)
	env.redis.Del(ctx, "balance:"+producerAddr)

	snapshots, err := storage.OpenBoltSnapshotStore(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open snapshot store: %v", err)
	}
	defer snapshots.Close()

	ledger := service.New(adminAddr, env.gateway)
	if err := ledger.RequestAdmission(ctx, producerAddr, domain.RoleProducer, nil); err != nil {
		t.Fatalf("request admission: %v", err)
	}
	if err := ledger.ApproveAdmission(ctx, adminAddr, producerAddr, domain.RoleProducer); err != nil {
		t.Fatalf("approve: %v", err)
	}
	batchID, err := ledger.CreateProduction(ctx, producerAddr, service.ProductionInput{
		Name: "durian", Quantity: 30, UnitPrice: 12, Visibility: domain.VisibilityPublic,
	})
	if err != nil {
		t.Fatalf("create production: %v", err)
	}

	if err := snapshots.Save(ledger.Snapshot()); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	state, ok, err := snapshots.Load()
	if err != nil || !ok {
		t.Fatalf("load snapshot: ok=%v err=%v", ok, err)
	}
	restored := service.Restore(state, env.gateway)

	if got := restored.RoleOf(producerAddr); got != domain.RoleProducer {
		t.Errorf("expected producer role after restore, got %s", got)
	}
	rec, err := restored.Production(batchID)
	if err != nil {
		t.Fatalf("production after restore: %v", err)
	}
	if rec.RemainingQuantity != 30 || !rec.Active {
		t.Errorf("restored batch mismatch: %+v", rec)
	}
}
