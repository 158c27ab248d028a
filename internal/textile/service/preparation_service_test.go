package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/bitfantasy/texcore/internal/textile/entity"
	"github.com/bitfantasy/texcore/internal/textile/repository"
	"github.com/bitfantasy/texcore/internal/textile/testutil"
	"gorm.io/gorm"
)

func setupPreparationTest(t *testing.T) (*gorm.DB, *PreparationService, *MaterialService) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	prepSvc := NewPreparationService(repos.Preparation, repos.Material, db)
	matSvc := NewMaterialService(repos.Material)
	return db, prepSvc, matSvc
}

func TestPreparationLifecycle(t *testing.T) {
	db, svc, _ := setupPreparationTest(t)
	ctx := context.Background()

	preparer := testutil.SeedTestUser(t, db, "prep-user-001", "preparer1", entity.RolePreparer)
	lot := testutil.SeedMaterialLot(t, db, "lot-001", "cotton", 100)

	prep, warning, err := svc.Create(ctx, CreatePreparationRequest{
		MaterialLotID: lot.ID,
		ProcessKind:   entity.ProcessCleaning,
		Quantity:      30,
	}, preparer.ID)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if warning != "" {
		t.Errorf("Expected no low stock warning, got %q", warning)
	}
	if prep.Status != entity.StatusPending {
		t.Errorf("Expected status pending, got %s", prep.Status)
	}

	// 创建不扣库存
	var lotAfterCreate entity.MaterialLot
	db.First(&lotAfterCreate, "id = ?", lot.ID)
	if lotAfterCreate.Quantity != 100 {
		t.Errorf("Expected quantity 100 after create, got %v", lotAfterCreate.Quantity)
	}

	if _, err := svc.Start(ctx, prep.ID, preparer.ID); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	completed, err := svc.Complete(ctx, prep.ID, preparer.ID)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if completed.Status != entity.StatusCompleted {
		t.Errorf("Expected status completed, got %s", completed.Status)
	}
	if completed.CompletedAt == nil {
		t.Error("Expected CompletedAt to be set")
	}

	// 完成时扣减库存
	var lotAfterComplete entity.MaterialLot
	db.First(&lotAfterComplete, "id = ?", lot.ID)
	if lotAfterComplete.Quantity != 70 {
		t.Errorf("Expected quantity 70 after complete, got %v", lotAfterComplete.Quantity)
	}
}

func TestPreparationCompleteInsufficientStock(t *testing.T) {
	db, svc, _ := setupPreparationTest(t)
	ctx := context.Background()

	preparer := testutil.SeedTestUser(t, db, "prep-user-002", "preparer2", entity.RolePreparer)
	lot := testutil.SeedMaterialLot(t, db, "lot-002", "wool", 50)
	prep := testutil.SeedPreparation(t, db, "prep-002", lot.ID, preparer.ID, entity.StatusInProgress, 40)

	// 创建后库存被其他途径消耗
	db.Model(&entity.MaterialLot{}).Where("id = ?", lot.ID).Update("quantity", 10)

	_, err := svc.Complete(ctx, prep.ID, preparer.ID)
	if err == nil {
		t.Fatal("Expected insufficient stock error")
	}
	if !strings.Contains(err.Error(), "库存不足") {
		t.Errorf("Expected stock error, got: %v", err)
	}

	// 失败后库存和工序状态都不变
	var lotAfter entity.MaterialLot
	db.First(&lotAfter, "id = ?", lot.ID)
	if lotAfter.Quantity != 10 {
		t.Errorf("Expected quantity unchanged at 10, got %v", lotAfter.Quantity)
	}
	var prepAfter entity.Preparation
	db.First(&prepAfter, "id = ?", prep.ID)
	if prepAfter.Status != entity.StatusInProgress {
		t.Errorf("Expected status unchanged in_progress, got %s", prepAfter.Status)
	}
	if prepAfter.CompletedAt != nil {
		t.Error("Expected CompletedAt to remain nil")
	}
}

func TestPreparationCreateInsufficientStock(t *testing.T) {
	db, svc, _ := setupPreparationTest(t)
	ctx := context.Background()

	preparer := testutil.SeedTestUser(t, db, "prep-user-003", "preparer3", entity.RolePreparer)
	lot := testutil.SeedMaterialLot(t, db, "lot-003", "linen", 20)

	_, _, err := svc.Create(ctx, CreatePreparationRequest{
		MaterialLotID: lot.ID,
		ProcessKind:   entity.ProcessBlending,
		Quantity:      25,
	}, preparer.ID)
	if err == nil {
		t.Fatal("Expected insufficient stock error")
	}
	if !strings.Contains(err.Error(), "库存不足") {
		t.Errorf("Expected stock error, got: %v", err)
	}
}

func TestPreparationCreateLowStockWarning(t *testing.T) {
	db, svc, _ := setupPreparationTest(t)
	ctx := context.Background()

	preparer := testutil.SeedTestUser(t, db, "prep-user-004", "preparer4", entity.RolePreparer)
	lot := testutil.SeedMaterialLot(t, db, "lot-004", "cotton", 100)

	// 完成后仅剩10，低于当前库存的20%
	prep, warning, err := svc.Create(ctx, CreatePreparationRequest{
		MaterialLotID: lot.ID,
		ProcessKind:   entity.ProcessOpening,
		Quantity:      90,
	}, preparer.ID)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if warning == "" {
		t.Error("Expected low stock warning")
	}
	if prep.Status != entity.StatusPending {
		t.Errorf("Warning must not block creation, got status %s", prep.Status)
	}
}

func TestPreparationStartOwnership(t *testing.T) {
	db, svc, _ := setupPreparationTest(t)
	ctx := context.Background()

	owner := testutil.SeedTestUser(t, db, "prep-user-005", "preparer5", entity.RolePreparer)
	other := testutil.SeedTestUser(t, db, "prep-user-006", "preparer6", entity.RolePreparer)
	lot := testutil.SeedMaterialLot(t, db, "lot-005", "cotton", 100)
	prep := testutil.SeedPreparation(t, db, "prep-005", lot.ID, owner.ID, entity.StatusPending, 10)

	if _, err := svc.Start(ctx, prep.ID, other.ID); err == nil {
		t.Fatal("Expected ownership error for non-owner start")
	}

	if _, err := svc.Start(ctx, prep.ID, owner.ID); err != nil {
		t.Fatalf("Owner start failed: %v", err)
	}

	// 二次开始被拒绝
	if _, err := svc.Start(ctx, prep.ID, owner.ID); err == nil {
		t.Fatal("Expected error on double start")
	}
}

func TestPreparationRejectFromNonTerminal(t *testing.T) {
	db, svc, _ := setupPreparationTest(t)
	ctx := context.Background()

	preparer := testutil.SeedTestUser(t, db, "prep-user-007", "preparer7", entity.RolePreparer)
	admin := testutil.SeedTestUser(t, db, "admin-001", "admin1", entity.RoleAdmin)
	lot := testutil.SeedMaterialLot(t, db, "lot-006", "cotton", 100)

	pending := testutil.SeedPreparation(t, db, "prep-006", lot.ID, preparer.ID, entity.StatusPending, 10)
	if _, err := svc.Reject(ctx, pending.ID, admin.ID, entity.RoleAdmin); err != nil {
		t.Fatalf("Admin reject of pending failed: %v", err)
	}

	inProgress := testutil.SeedPreparation(t, db, "prep-007", lot.ID, preparer.ID, entity.StatusInProgress, 10)
	if _, err := svc.Reject(ctx, inProgress.ID, preparer.ID, entity.RolePreparer); err != nil {
		t.Fatalf("Owner reject of in_progress failed: %v", err)
	}

	completed := testutil.SeedPreparation(t, db, "prep-008", lot.ID, preparer.ID, entity.StatusCompleted, 10)
	if _, err := svc.Reject(ctx, completed.ID, admin.ID, entity.RoleAdmin); err == nil {
		t.Fatal("Expected error rejecting a completed preparation")
	}

	rejected := testutil.SeedPreparation(t, db, "prep-009", lot.ID, preparer.ID, entity.StatusRejected, 10)
	if _, err := svc.Reject(ctx, rejected.ID, admin.ID, entity.RoleAdmin); err == nil {
		t.Fatal("Expected error rejecting an already rejected preparation")
	}
}

func TestPreparationUpdateOnlyPending(t *testing.T) {
	db, svc, _ := setupPreparationTest(t)
	ctx := context.Background()

	preparer := testutil.SeedTestUser(t, db, "prep-user-008", "preparer8", entity.RolePreparer)
	lot := testutil.SeedMaterialLot(t, db, "lot-007", "cotton", 100)
	prep := testutil.SeedPreparation(t, db, "prep-010", lot.ID, preparer.ID, entity.StatusInProgress, 10)

	newQty := 20.0
	if _, err := svc.Update(ctx, prep.ID, preparer.ID, UpdatePreparationRequest{Quantity: &newQty}); err == nil {
		t.Fatal("Expected error updating in_progress preparation")
	}
}

func TestPreparationCompleteConcurrentOnlyOnce(t *testing.T) {
	db, svc, _ := setupPreparationTest(t)
	ctx := context.Background()

	preparer := testutil.SeedTestUser(t, db, "prep-user-011", "preparer11", entity.RolePreparer)
	lot := testutil.SeedMaterialLot(t, db, "lot-014", "cotton", 100)
	prep := testutil.SeedPreparation(t, db, "prep-015", lot.ID, preparer.ID, entity.StatusInProgress, 30)

	// 两个并发完成，工序行锁保证只有一个成功、库存只扣一次
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Complete(ctx, prep.ID, preparer.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	if succeeded != 1 {
		t.Fatalf("Expected exactly 1 completion to succeed, got %d (errs: %v)", succeeded, errs)
	}

	var lotAfter entity.MaterialLot
	db.First(&lotAfter, "id = ?", lot.ID)
	if lotAfter.Quantity != 70 {
		t.Errorf("Expected quantity decremented once to 70, got %v", lotAfter.Quantity)
	}
	var prepAfter entity.Preparation
	db.First(&prepAfter, "id = ?", prep.ID)
	if prepAfter.Status != entity.StatusCompleted {
		t.Errorf("Expected status completed, got %s", prepAfter.Status)
	}
}

func TestSeededRecordsReadableThroughRepositories(t *testing.T) {
	db, svc, _ := setupPreparationTest(t)
	ctx := context.Background()

	// 种子助手用可读ID写varchar(36)主键，写入和读取都必须成功
	preparer := testutil.SeedTestUser(t, db, "prep-user-012", "preparer12", entity.RolePreparer)
	lot := testutil.SeedMaterialLot(t, db, "lot-015", "cotton", 100)
	prep := testutil.SeedPreparation(t, db, "prep-016", lot.ID, preparer.ID, entity.StatusPending, 10)

	got, err := svc.GetByID(ctx, prep.ID)
	if err != nil {
		t.Fatalf("GetByID failed for seeded preparation: %v", err)
	}
	if got.MaterialLotID != lot.ID || got.PreparerID != preparer.ID {
		t.Errorf("Seeded references lost: lot=%s preparer=%s", got.MaterialLotID, got.PreparerID)
	}
	if got.MaterialLot == nil || got.MaterialLot.LotCode != "LOT-lot-015" {
		t.Error("Expected preloaded material lot with seeded lot code")
	}
}

func TestMaterialDeleteDeclinedWhenReferenced(t *testing.T) {
	db, _, matSvc := setupPreparationTest(t)
	ctx := context.Background()

	preparer := testutil.SeedTestUser(t, db, "prep-user-009", "preparer9", entity.RolePreparer)
	lot := testutil.SeedMaterialLot(t, db, "lot-008", "cotton", 100)
	testutil.SeedPreparation(t, db, "prep-011", lot.ID, preparer.ID, entity.StatusCompleted, 10)

	err := matSvc.Delete(ctx, lot.ID)
	if err == nil {
		t.Fatal("Expected delete to be declined while referenced")
	}
	if !strings.Contains(err.Error(), "不能删除") {
		t.Errorf("Expected reference error, got: %v", err)
	}

	// 未被引用的批次可以删除
	free := testutil.SeedMaterialLot(t, db, "lot-009", "wool", 50)
	if err := matSvc.Delete(ctx, free.ID); err != nil {
		t.Fatalf("Delete of unreferenced lot failed: %v", err)
	}
	var deleted entity.MaterialLot
	if err := db.Unscoped().First(&deleted, "id = ?", free.ID).Error; err != nil {
		t.Fatalf("Soft-deleted lot should remain in table: %v", err)
	}
	if deleted.DeletedAt == nil {
		t.Error("Expected DeletedAt to be set")
	}
}

func TestMaterialAvailabilityFilter(t *testing.T) {
	db, _, matSvc := setupPreparationTest(t)
	ctx := context.Background()

	preparer := testutil.SeedTestUser(t, db, "prep-user-010", "preparer10", entity.RolePreparer)
	free := testutil.SeedMaterialLot(t, db, "lot-010", "cotton", 100)
	busy := testutil.SeedMaterialLot(t, db, "lot-011", "wool", 100)
	done := testutil.SeedMaterialLot(t, db, "lot-012", "linen", 100)
	empty := testutil.SeedMaterialLot(t, db, "lot-013", "silk", 0)

	// busy 有进行中的准备工序，done 只有终态工序
	testutil.SeedPreparation(t, db, "prep-012", busy.ID, preparer.ID, entity.StatusInProgress, 10)
	testutil.SeedPreparation(t, db, "prep-013", done.ID, preparer.ID, entity.StatusCompleted, 10)
	testutil.SeedPreparation(t, db, "prep-014", done.ID, preparer.ID, entity.StatusRejected, 10)

	lots, err := matSvc.ListAvailable(ctx)
	if err != nil {
		t.Fatalf("ListAvailable failed: %v", err)
	}

	ids := make(map[string]bool)
	for _, l := range lots {
		ids[l.ID] = true
	}
	if !ids[free.ID] {
		t.Error("Expected lot without preparations to be available")
	}
	if ids[busy.ID] {
		t.Error("Lot with in_progress preparation must not be available")
	}
	if !ids[done.ID] {
		t.Error("Lot with only terminal preparations should be available")
	}
	if ids[empty.ID] {
		t.Error("Lot with zero quantity must not be available")
	}
}
