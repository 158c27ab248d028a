package service

import (
	"context"
	"strings"
	"testing"

	"github.com/bitfantasy/texcore/internal/textile/entity"
	"github.com/bitfantasy/texcore/internal/textile/repository"
	"github.com/bitfantasy/texcore/internal/textile/testutil"
	"gorm.io/gorm"
)

func setupSpinningTest(t *testing.T) (*gorm.DB, *SpinningService) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	return db, NewSpinningService(repos.Spinning, repos.Preparation)
}

func TestSpinningCreateRequiresCompletedSource(t *testing.T) {
	db, svc := setupSpinningTest(t)
	ctx := context.Background()

	operator := testutil.SeedTestUser(t, db, "spin-user-001", "operator1", entity.RoleOperator)
	preparer := testutil.SeedTestUser(t, db, "spin-prep-001", "preparer1", entity.RolePreparer)
	lot := testutil.SeedMaterialLot(t, db, "spin-lot-001", "cotton", 100)

	pending := testutil.SeedPreparation(t, db, "spin-prep-a", lot.ID, preparer.ID, entity.StatusPending, 30)
	_, err := svc.Create(ctx, CreateSpinningRequest{
		PreparationID: &pending.ID,
		Stage:         entity.StageCarding,
		InputFiberQty: 30,
	}, operator.ID)
	if err == nil {
		t.Fatal("Expected error for non-completed source preparation")
	}
	if !strings.Contains(err.Error(), "未完成") {
		t.Errorf("Expected source status error, got: %v", err)
	}

	completed := testutil.SeedPreparation(t, db, "spin-prep-b", lot.ID, preparer.ID, entity.StatusCompleted, 30)
	proc, err := svc.Create(ctx, CreateSpinningRequest{
		PreparationID: &completed.ID,
		Stage:         entity.StageCarding,
		InputFiberQty: 30,
	}, operator.ID)
	if err != nil {
		t.Fatalf("Create with completed source failed: %v", err)
	}
	if proc.Status != entity.StatusPending {
		t.Errorf("Expected status pending, got %s", proc.Status)
	}
}

func TestSpinningCreateWithoutSource(t *testing.T) {
	db, svc := setupSpinningTest(t)
	ctx := context.Background()

	operator := testutil.SeedTestUser(t, db, "spin-user-002", "operator2", entity.RoleOperator)

	// 来源准备工序可选
	proc, err := svc.Create(ctx, CreateSpinningRequest{
		Stage:         entity.StageSpinning,
		InputFiberQty: 15,
		YarnCount:     "Ne 30",
	}, operator.ID)
	if err != nil {
		t.Fatalf("Create without source failed: %v", err)
	}
	if proc.PreparationID != nil {
		t.Errorf("Expected nil PreparationID, got %v", *proc.PreparationID)
	}
}

func TestSpinningCompleteDerivesYield(t *testing.T) {
	db, svc := setupSpinningTest(t)
	ctx := context.Background()

	operator := testutil.SeedTestUser(t, db, "spin-user-003", "operator3", entity.RoleOperator)

	proc, err := svc.Create(ctx, CreateSpinningRequest{
		Stage:         entity.StageCombing,
		InputFiberQty: 50,
	}, operator.ID)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.Start(ctx, proc.ID, operator.ID); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	done, err := svc.Complete(ctx, proc.ID, operator.ID, CompleteSpinningRequest{
		OutputYarnQty: 40,
		QualityGrade:  "A",
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if done.Yield() != 80 {
		t.Errorf("Expected yield 80, got %v", done.Yield())
	}
	if done.Waste() != 20 {
		t.Errorf("Expected waste 20, got %v", done.Waste())
	}
	if done.CompletedAt == nil {
		t.Error("Expected CompletedAt to be set")
	}
}

func TestSpinningCompleteOutputCannotExceedInput(t *testing.T) {
	db, svc := setupSpinningTest(t)
	ctx := context.Background()

	operator := testutil.SeedTestUser(t, db, "spin-user-004", "operator4", entity.RoleOperator)
	proc, _ := svc.Create(ctx, CreateSpinningRequest{
		Stage:         entity.StageCarding,
		InputFiberQty: 10,
	}, operator.ID)
	svc.Start(ctx, proc.ID, operator.ID)

	_, err := svc.Complete(ctx, proc.ID, operator.ID, CompleteSpinningRequest{OutputYarnQty: 12})
	if err == nil {
		t.Fatal("Expected error when output exceeds input")
	}
}

func TestSpinningCompletedImmutable(t *testing.T) {
	db, svc := setupSpinningTest(t)
	ctx := context.Background()

	operator := testutil.SeedTestUser(t, db, "spin-user-005", "operator5", entity.RoleOperator)
	proc, _ := svc.Create(ctx, CreateSpinningRequest{
		Stage:         entity.StageCarding,
		InputFiberQty: 10,
	}, operator.ID)
	svc.Start(ctx, proc.ID, operator.ID)
	svc.Complete(ctx, proc.ID, operator.ID, CompleteSpinningRequest{OutputYarnQty: 8})

	newQty := 20.0
	if _, err := svc.Update(ctx, proc.ID, operator.ID, UpdateSpinningRequest{InputFiberQty: &newQty}); err == nil {
		t.Fatal("Expected error updating completed process")
	}
	if err := svc.Delete(ctx, proc.ID); err == nil {
		t.Fatal("Expected error deleting completed process")
	}
}

func TestSpinningStats(t *testing.T) {
	db, svc := setupSpinningTest(t)
	ctx := context.Background()

	operator := testutil.SeedTestUser(t, db, "spin-user-006", "operator6", entity.RoleOperator)

	// 两个完成（共投入60，产出45），一个进行中
	p1, _ := svc.Create(ctx, CreateSpinningRequest{Stage: entity.StageCarding, InputFiberQty: 40}, operator.ID)
	svc.Start(ctx, p1.ID, operator.ID)
	svc.Complete(ctx, p1.ID, operator.ID, CompleteSpinningRequest{OutputYarnQty: 30})

	p2, _ := svc.Create(ctx, CreateSpinningRequest{Stage: entity.StageSpinning, InputFiberQty: 20}, operator.ID)
	svc.Start(ctx, p2.ID, operator.ID)
	svc.Complete(ctx, p2.ID, operator.ID, CompleteSpinningRequest{OutputYarnQty: 15})

	p3, _ := svc.Create(ctx, CreateSpinningRequest{Stage: entity.StageCarding, InputFiberQty: 10}, operator.ID)
	svc.Start(ctx, p3.ID, operator.ID)

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.ByStatus[entity.StatusCompleted] != 2 {
		t.Errorf("Expected 2 completed, got %d", stats.ByStatus[entity.StatusCompleted])
	}
	if stats.ByStatus[entity.StatusInProgress] != 1 {
		t.Errorf("Expected 1 in_progress, got %d", stats.ByStatus[entity.StatusInProgress])
	}
	if stats.ByStage[entity.StageCarding] != 2 {
		t.Errorf("Expected 2 carding, got %d", stats.ByStage[entity.StageCarding])
	}
	if stats.TotalOutput != 45 {
		t.Errorf("Expected total output 45, got %v", stats.TotalOutput)
	}
	if stats.AverageYield != 75 {
		t.Errorf("Expected average yield 75, got %v", stats.AverageYield)
	}
}
