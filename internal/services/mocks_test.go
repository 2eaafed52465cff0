package services

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/models"
	"github.com/benwaldman33/gold-drop-production-tracker/internal/repositories"
)

// The services open transactions on *sql.DB but all persistence in these
// tests goes through in-memory repositories, so the driver only needs to
// hand out transactions that commit and roll back without complaint.

type nopDriver struct{}

func (nopDriver) Open(name string) (driver.Conn, error) { return &nopConn{}, nil }

type nopConn struct{}

func (*nopConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("statements not supported")
}
func (*nopConn) Close() error              { return nil }
func (*nopConn) Begin() (driver.Tx, error) { return nopTx{}, nil }

type nopTx struct{}

func (nopTx) Commit() error   { return nil }
func (nopTx) Rollback() error { return nil }

var registerTestDriver sync.Once

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	registerTestDriver.Do(func() { sql.Register("servicetest", nopDriver{}) })
	db, err := sql.Open("servicetest", "")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func fptr(v float64) *float64 { return &v }
func sptr(v string) *string   { return &v }
func iptr(v int64) *int64     { return &v }
func bptr(v bool) *bool       { return &v }

func day(value string) time.Time {
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return d
}

// --- lots ---

type mockLotRepo struct {
	lots   map[int64]*models.Lot
	nextID int64
}

func newMockLotRepo() *mockLotRepo {
	return &mockLotRepo{lots: map[int64]*models.Lot{}}
}

func (m *mockLotRepo) add(lot models.Lot) *models.Lot {
	m.nextID++
	lot.ID = m.nextID
	stored := lot
	m.lots[lot.ID] = &stored
	return &stored
}

func (m *mockLotRepo) Create(_ repositories.SQLExecutor, lot *models.Lot) (int64, error) {
	stored := m.add(*lot)
	lot.ID = stored.ID
	return stored.ID, nil
}

func (m *mockLotRepo) GetByID(lotID int64) (*models.Lot, error) {
	lot, ok := m.lots[lotID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *lot
	return &copied, nil
}

func (m *mockLotRepo) GetByPurchase(purchaseID int64) ([]models.Lot, error) {
	var result []models.Lot
	for _, lot := range m.lots {
		if lot.PurchaseID == purchaseID {
			result = append(result, *lot)
		}
	}
	return result, nil
}

func (m *mockLotRepo) GetAll() ([]models.Lot, error) {
	var result []models.Lot
	for _, lot := range m.lots {
		result = append(result, *lot)
	}
	return result, nil
}

func (m *mockLotRepo) GetAvailable() ([]models.Lot, error) {
	var result []models.Lot
	for _, lot := range m.lots {
		if lot.RemainingWeightLbs > 0 {
			result = append(result, *lot)
		}
	}
	return result, nil
}

func (m *mockLotRepo) GetOnHand(_ []string) ([]models.Lot, error) {
	return m.GetAvailable()
}

func (m *mockLotRepo) Update(_ repositories.SQLExecutor, lot *models.Lot) error {
	if _, ok := m.lots[lot.ID]; !ok {
		return repositories.ErrNotFound
	}
	copied := *lot
	m.lots[lot.ID] = &copied
	return nil
}

func (m *mockLotRepo) SetRemaining(_ repositories.SQLExecutor, lotID int64, remaining float64) error {
	lot, ok := m.lots[lotID]
	if !ok {
		return repositories.ErrNotFound
	}
	lot.RemainingWeightLbs = remaining
	return nil
}

func (m *mockLotRepo) AdjustRemaining(_ repositories.SQLExecutor, lotID int64, delta float64) error {
	lot, ok := m.lots[lotID]
	if !ok {
		return repositories.ErrNotFound
	}
	lot.RemainingWeightLbs += delta
	return nil
}

func (m *mockLotRepo) GetRemaining(_ repositories.SQLExecutor, lotID int64) (float64, error) {
	lot, ok := m.lots[lotID]
	if !ok {
		return 0, repositories.ErrNotFound
	}
	return lot.RemainingWeightLbs, nil
}

func (m *mockLotRepo) FindByPurchaseAndStrain(purchaseID int64, strainName string) (*models.Lot, error) {
	for _, lot := range m.lots {
		if lot.PurchaseID == purchaseID && lot.StrainName == strainName {
			copied := *lot
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

// --- runs ---

type mockRunRepo struct {
	runs             map[int64]*models.Run
	inputs           map[int64][]models.RunInput
	nextID           int64
	nextInputID      int64
	updateDerivedErr map[int64]error
	existing         map[string]bool
}

func newMockRunRepo() *mockRunRepo {
	return &mockRunRepo{
		runs:             map[int64]*models.Run{},
		inputs:           map[int64][]models.RunInput{},
		updateDerivedErr: map[int64]error{},
		existing:         map[string]bool{},
	}
}

func dedupKey(runDate time.Time, strainName string, supplierID int64) string {
	return fmt.Sprintf("%s|%s|%d", runDate.Format("2006-01-02"), strainName, supplierID)
}

func (m *mockRunRepo) add(run models.Run) *models.Run {
	m.nextID++
	run.ID = m.nextID
	run.Inputs = nil
	stored := run
	m.runs[run.ID] = &stored
	return &stored
}

func (m *mockRunRepo) Create(_ repositories.SQLExecutor, run *models.Run) (int64, error) {
	stored := m.add(*run)
	run.ID = stored.ID
	return stored.ID, nil
}

func (m *mockRunRepo) GetByID(runID int64) (*models.Run, error) {
	run, ok := m.runs[runID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *run
	return &copied, nil
}

func (m *mockRunRepo) GetAll(_ repositories.RunFilters) ([]models.Run, int, error) {
	runs, err := m.GetAllOrdered()
	return runs, len(runs), err
}

func (m *mockRunRepo) GetInDateRange(start, end time.Time) ([]models.Run, error) {
	all, _ := m.GetAllOrdered()
	var result []models.Run
	for _, run := range all {
		if !run.RunDate.Before(start) && !run.RunDate.After(end) {
			result = append(result, run)
		}
	}
	return result, nil
}

func (m *mockRunRepo) GetAllOrdered() ([]models.Run, error) {
	result := make([]models.Run, 0, len(m.runs))
	for _, run := range m.runs {
		result = append(result, *run)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].RunDate.Equal(result[j].RunDate) {
			return result[i].RunDate.Before(result[j].RunDate)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *mockRunRepo) Update(_ repositories.SQLExecutor, run *models.Run) error {
	if _, ok := m.runs[run.ID]; !ok {
		return repositories.ErrNotFound
	}
	copied := *run
	copied.Inputs = nil
	m.runs[run.ID] = &copied
	return nil
}

func (m *mockRunRepo) UpdateDerived(_ repositories.SQLExecutor, run *models.Run) error {
	if err := m.updateDerivedErr[run.ID]; err != nil {
		return err
	}
	stored, ok := m.runs[run.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	stored.GramsRan = run.GramsRan
	stored.OverallYieldPct = run.OverallYieldPct
	stored.ThcaYieldPct = run.ThcaYieldPct
	stored.HteYieldPct = run.HteYieldPct
	stored.CostPerGramCombined = run.CostPerGramCombined
	stored.CostPerGramThca = run.CostPerGramThca
	stored.CostPerGramHte = run.CostPerGramHte
	return nil
}

func (m *mockRunRepo) Delete(_ repositories.SQLExecutor, runID int64) error {
	if _, ok := m.runs[runID]; !ok {
		return repositories.ErrNotFound
	}
	delete(m.runs, runID)
	return nil
}

func (m *mockRunRepo) ExistsForDateStrainSupplier(runDate time.Time, strainName string, supplierID int64) (bool, error) {
	return m.existing[dedupKey(runDate, strainName, supplierID)], nil
}

func (m *mockRunRepo) CreateInput(_ repositories.SQLExecutor, input *models.RunInput) (int64, error) {
	m.nextInputID++
	input.ID = m.nextInputID
	m.inputs[input.RunID] = append(m.inputs[input.RunID], *input)
	return input.ID, nil
}

func (m *mockRunRepo) GetInputs(runID int64) ([]models.RunInput, error) {
	return append([]models.RunInput(nil), m.inputs[runID]...), nil
}

func (m *mockRunRepo) GetInputsForRuns(runIDs []int64) (map[int64][]models.RunInput, error) {
	result := map[int64][]models.RunInput{}
	for _, id := range runIDs {
		if inputs, ok := m.inputs[id]; ok {
			result[id] = append([]models.RunInput(nil), inputs...)
		}
	}
	return result, nil
}

func (m *mockRunRepo) DeleteInputs(_ repositories.SQLExecutor, runID int64) error {
	delete(m.inputs, runID)
	return nil
}

// --- cost entries ---

type mockCostRepo struct {
	entries map[int64]*models.CostEntry
	nextID  int64
}

func newMockCostRepo() *mockCostRepo {
	return &mockCostRepo{entries: map[int64]*models.CostEntry{}}
}

func (m *mockCostRepo) Create(_ repositories.SQLExecutor, entry *models.CostEntry) (int64, error) {
	m.nextID++
	entry.ID = m.nextID
	stored := *entry
	m.entries[entry.ID] = &stored
	return entry.ID, nil
}

func (m *mockCostRepo) GetByID(entryID int64) (*models.CostEntry, error) {
	entry, ok := m.entries[entryID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *entry
	return &copied, nil
}

func (m *mockCostRepo) GetAll(costType string) ([]models.CostEntry, error) {
	var result []models.CostEntry
	for _, entry := range m.entries {
		if costType == "" || entry.CostType == costType {
			result = append(result, *entry)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockCostRepo) Update(_ repositories.SQLExecutor, entry *models.CostEntry) error {
	if _, ok := m.entries[entry.ID]; !ok {
		return repositories.ErrNotFound
	}
	copied := *entry
	m.entries[entry.ID] = &copied
	return nil
}

func (m *mockCostRepo) Delete(_ repositories.SQLExecutor, entryID int64) error {
	if _, ok := m.entries[entryID]; !ok {
		return repositories.ErrNotFound
	}
	delete(m.entries, entryID)
	return nil
}

// --- audit ---

type mockAuditRepo struct {
	events []models.AuditEvent
}

func newMockAuditRepo() *mockAuditRepo { return &mockAuditRepo{} }

func (m *mockAuditRepo) Record(_ repositories.SQLExecutor, event *models.AuditEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.ID = int64(len(m.events) + 1)
	m.events = append(m.events, *event)
	return nil
}

func (m *mockAuditRepo) GetForEntity(entityType string, entityID int64) ([]models.AuditEvent, error) {
	var result []models.AuditEvent
	for _, event := range m.events {
		if event.EntityType == entityType && event.EntityID == entityID {
			result = append(result, event)
		}
	}
	return result, nil
}

func (m *mockAuditRepo) GetRecent(limit int) ([]models.AuditEvent, error) {
	if limit > len(m.events) {
		limit = len(m.events)
	}
	result := make([]models.AuditEvent, 0, limit)
	for i := len(m.events) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, m.events[i])
	}
	return result, nil
}

// --- settings ---

type mockSettingRepo struct {
	values map[string]string
}

func newMockSettingRepo() *mockSettingRepo {
	return &mockSettingRepo{values: map[string]string{}}
}

func (m *mockSettingRepo) GetAll() ([]models.SystemSetting, error) {
	var result []models.SystemSetting
	for key, value := range m.values {
		v := value
		result = append(result, models.SystemSetting{SettingKey: key, SettingValue: &v})
	}
	return result, nil
}

func (m *mockSettingRepo) GetByKey(key string) (*models.SystemSetting, error) {
	value, ok := m.values[key]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &models.SystemSetting{SettingKey: key, SettingValue: &value}, nil
}

func (m *mockSettingRepo) Upsert(_ repositories.SQLExecutor, key, value string) error {
	m.values[key] = value
	return nil
}

// --- KPI targets ---

type mockKpiRepo struct {
	targets map[string]*models.KpiTarget
	nextID  int64
}

func newMockKpiRepo() *mockKpiRepo {
	return &mockKpiRepo{targets: map[string]*models.KpiTarget{}}
}

func (m *mockKpiRepo) add(target models.KpiTarget) {
	m.nextID++
	target.ID = m.nextID
	stored := target
	m.targets[target.KpiName] = &stored
}

func (m *mockKpiRepo) GetAll() ([]models.KpiTarget, error) {
	var result []models.KpiTarget
	for _, target := range m.targets {
		result = append(result, *target)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockKpiRepo) GetByName(kpiName string) (*models.KpiTarget, error) {
	target, ok := m.targets[kpiName]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *target
	return &copied, nil
}

func (m *mockKpiRepo) Update(_ repositories.SQLExecutor, target *models.KpiTarget) error {
	if _, ok := m.targets[target.KpiName]; !ok {
		return repositories.ErrNotFound
	}
	copied := *target
	m.targets[target.KpiName] = &copied
	return nil
}

// --- suppliers ---

type mockSupplierRepo struct {
	suppliers map[int64]*models.Supplier
	nextID    int64
}

func newMockSupplierRepo() *mockSupplierRepo {
	return &mockSupplierRepo{suppliers: map[int64]*models.Supplier{}}
}

func (m *mockSupplierRepo) add(supplier models.Supplier) *models.Supplier {
	m.nextID++
	supplier.ID = m.nextID
	stored := supplier
	m.suppliers[supplier.ID] = &stored
	return &stored
}

func (m *mockSupplierRepo) Create(_ repositories.SQLExecutor, supplier *models.Supplier) (int64, error) {
	stored := m.add(*supplier)
	supplier.ID = stored.ID
	return stored.ID, nil
}

func (m *mockSupplierRepo) GetByID(supplierID int64) (*models.Supplier, error) {
	supplier, ok := m.suppliers[supplierID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *supplier
	return &copied, nil
}

func (m *mockSupplierRepo) GetAll(activeOnly bool) ([]models.Supplier, error) {
	var result []models.Supplier
	for _, supplier := range m.suppliers {
		if activeOnly && !supplier.IsActive {
			continue
		}
		result = append(result, *supplier)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockSupplierRepo) Update(_ repositories.SQLExecutor, supplier *models.Supplier) error {
	if _, ok := m.suppliers[supplier.ID]; !ok {
		return repositories.ErrNotFound
	}
	copied := *supplier
	m.suppliers[supplier.ID] = &copied
	return nil
}

func (m *mockSupplierRepo) FindByName(name string) (*models.Supplier, error) {
	for _, supplier := range m.suppliers {
		if supplier.Name == name {
			copied := *supplier
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

// --- purchases ---

type mockPurchaseRepo struct {
	purchases map[int64]*models.Purchase
	nextID    int64
}

func newMockPurchaseRepo() *mockPurchaseRepo {
	return &mockPurchaseRepo{purchases: map[int64]*models.Purchase{}}
}

func (m *mockPurchaseRepo) add(purchase models.Purchase) *models.Purchase {
	m.nextID++
	purchase.ID = m.nextID
	stored := purchase
	m.purchases[purchase.ID] = &stored
	return &stored
}

func (m *mockPurchaseRepo) Create(_ repositories.SQLExecutor, purchase *models.Purchase) (int64, error) {
	stored := m.add(*purchase)
	purchase.ID = stored.ID
	return stored.ID, nil
}

func (m *mockPurchaseRepo) GetByID(purchaseID int64) (*models.Purchase, error) {
	purchase, ok := m.purchases[purchaseID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *purchase
	return &copied, nil
}

func (m *mockPurchaseRepo) GetByIDs(purchaseIDs []int64) ([]models.Purchase, error) {
	var result []models.Purchase
	for _, id := range purchaseIDs {
		if purchase, ok := m.purchases[id]; ok {
			result = append(result, *purchase)
		}
	}
	return result, nil
}

func (m *mockPurchaseRepo) GetAll(status *string, _, _ int) ([]models.Purchase, int, error) {
	var result []models.Purchase
	for _, purchase := range m.purchases {
		if status != nil && purchase.Status != *status {
			continue
		}
		result = append(result, *purchase)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, len(result), nil
}

func (m *mockPurchaseRepo) Update(_ repositories.SQLExecutor, purchase *models.Purchase) error {
	if _, ok := m.purchases[purchase.ID]; !ok {
		return repositories.ErrNotFound
	}
	if purchase.BatchID != nil {
		for id, other := range m.purchases {
			if id != purchase.ID && other.BatchID != nil && *other.BatchID == *purchase.BatchID {
				return repositories.ErrDuplicateKey
			}
		}
	}
	copied := *purchase
	copied.Lots = nil
	m.purchases[purchase.ID] = &copied
	return nil
}

func (m *mockPurchaseRepo) BatchIDExists(batchID string, excludePurchaseID int64) (bool, error) {
	for id, purchase := range m.purchases {
		if id == excludePurchaseID {
			continue
		}
		if purchase.BatchID != nil && *purchase.BatchID == batchID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockPurchaseRepo) GetLatestForSupplier(supplierID int64) (*models.Purchase, error) {
	var latest *models.Purchase
	for _, purchase := range m.purchases {
		if purchase.SupplierID != supplierID {
			continue
		}
		if latest == nil || purchase.ID > latest.ID {
			latest = purchase
		}
	}
	if latest == nil {
		return nil, repositories.ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

// --- pipeline ---

type mockPipelineRepo struct {
	items  map[int64]*models.PipelineAvailability
	nextID int64
}

func newMockPipelineRepo() *mockPipelineRepo {
	return &mockPipelineRepo{items: map[int64]*models.PipelineAvailability{}}
}

func (m *mockPipelineRepo) add(item models.PipelineAvailability) *models.PipelineAvailability {
	m.nextID++
	item.ID = m.nextID
	stored := item
	m.items[item.ID] = &stored
	return &stored
}

func (m *mockPipelineRepo) Create(_ repositories.SQLExecutor, item *models.PipelineAvailability) (int64, error) {
	stored := m.add(*item)
	item.ID = stored.ID
	return stored.ID, nil
}

func (m *mockPipelineRepo) GetByID(itemID int64) (*models.PipelineAvailability, error) {
	item, ok := m.items[itemID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *item
	return &copied, nil
}

func (m *mockPipelineRepo) GetAll(stage *string) ([]models.PipelineAvailability, error) {
	var result []models.PipelineAvailability
	for _, item := range m.items {
		if stage != nil && item.Stage != *stage {
			continue
		}
		result = append(result, *item)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockPipelineRepo) Update(_ repositories.SQLExecutor, item *models.PipelineAvailability) error {
	if _, ok := m.items[item.ID]; !ok {
		return repositories.ErrNotFound
	}
	copied := *item
	m.items[item.ID] = &copied
	return nil
}

func (m *mockPipelineRepo) Delete(_ repositories.SQLExecutor, itemID int64) error {
	if _, ok := m.items[itemID]; !ok {
		return repositories.ErrNotFound
	}
	delete(m.items, itemID)
	return nil
}

func (m *mockPipelineRepo) FindByPurchaseID(purchaseID int64) (*models.PipelineAvailability, error) {
	for _, item := range m.items {
		if item.PurchaseID != nil && *item.PurchaseID == purchaseID {
			copied := *item
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

// --- users ---

type mockAuthRepo struct {
	users  map[int64]*models.User
	nextID int64
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{users: map[int64]*models.User{}}
}

func (m *mockAuthRepo) add(user models.User) *models.User {
	m.nextID++
	user.ID = m.nextID
	stored := user
	m.users[user.ID] = &stored
	return &stored
}

func (m *mockAuthRepo) CreateUser(_ repositories.SQLExecutor, user *models.User) (int64, error) {
	for _, existing := range m.users {
		if existing.Username == user.Username {
			return 0, repositories.ErrDuplicateKey
		}
	}
	stored := m.add(*user)
	user.ID = stored.ID
	return stored.ID, nil
}

func (m *mockAuthRepo) FindUserByUsername(username string) (*models.User, error) {
	for _, user := range m.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *mockAuthRepo) FindUserByID(userID int64) (*models.User, error) {
	user, ok := m.users[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *mockAuthRepo) GetAllUsers() ([]models.User, error) {
	var result []models.User
	for _, user := range m.users {
		result = append(result, *user)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockAuthRepo) UpdateUser(_ repositories.SQLExecutor, user *models.User) error {
	stored, ok := m.users[user.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	hash := stored.PasswordHash
	copied := *user
	if copied.PasswordHash == "" {
		copied.PasswordHash = hash
	}
	m.users[user.ID] = &copied
	return nil
}

func (m *mockAuthRepo) UpdatePassword(_ repositories.SQLExecutor, userID int64, passwordHash string) error {
	user, ok := m.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (m *mockAuthRepo) CountActiveByRole(role string) (int, error) {
	count := 0
	for _, user := range m.users {
		if user.Role == role && user.IsActive {
			count++
		}
	}
	return count, nil
}

// --- field access tokens ---

type mockFieldTokenRepo struct {
	tokens map[int64]*models.FieldAccessToken
	nextID int64
}

func newMockFieldTokenRepo() *mockFieldTokenRepo {
	return &mockFieldTokenRepo{tokens: map[int64]*models.FieldAccessToken{}}
}

func (m *mockFieldTokenRepo) add(token models.FieldAccessToken) *models.FieldAccessToken {
	m.nextID++
	token.ID = m.nextID
	stored := token
	m.tokens[token.ID] = &stored
	return &stored
}

func (m *mockFieldTokenRepo) Create(_ repositories.SQLExecutor, token *models.FieldAccessToken) (int64, error) {
	m.nextID++
	token.ID = m.nextID
	token.CreatedAt = time.Now()
	stored := *token
	m.tokens[token.ID] = &stored
	return token.ID, nil
}

func (m *mockFieldTokenRepo) GetByID(tokenID int64) (*models.FieldAccessToken, error) {
	token, ok := m.tokens[tokenID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *token
	return &copied, nil
}

func (m *mockFieldTokenRepo) GetAll() ([]models.FieldAccessToken, error) {
	result := []models.FieldAccessToken{}
	for _, token := range m.tokens {
		result = append(result, *token)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (m *mockFieldTokenRepo) FindByHash(hash string) (*models.FieldAccessToken, error) {
	for _, token := range m.tokens {
		if token.TokenHash == hash {
			copied := *token
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *mockFieldTokenRepo) TouchLastUsed(tokenID int64, usedAt time.Time) error {
	token, ok := m.tokens[tokenID]
	if !ok {
		return repositories.ErrNotFound
	}
	token.LastUsedAt = &usedAt
	return nil
}

func (m *mockFieldTokenRepo) Revoke(_ repositories.SQLExecutor, tokenID int64, revokedAt time.Time) error {
	token, ok := m.tokens[tokenID]
	if !ok {
		return repositories.ErrNotFound
	}
	token.RevokedAt = &revokedAt
	return nil
}

// --- field purchase submissions ---

type mockFieldSubmissionRepo struct {
	submissions map[int64]*models.FieldPurchaseSubmission
	nextID      int64
}

func newMockFieldSubmissionRepo() *mockFieldSubmissionRepo {
	return &mockFieldSubmissionRepo{submissions: map[int64]*models.FieldPurchaseSubmission{}}
}

func (m *mockFieldSubmissionRepo) Create(_ repositories.SQLExecutor, submission *models.FieldPurchaseSubmission) (int64, error) {
	m.nextID++
	submission.ID = m.nextID
	submission.SubmittedAt = time.Now()
	stored := *submission
	m.submissions[submission.ID] = &stored
	return submission.ID, nil
}

func (m *mockFieldSubmissionRepo) GetByID(submissionID int64) (*models.FieldPurchaseSubmission, error) {
	submission, ok := m.submissions[submissionID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *submission
	return &copied, nil
}

func (m *mockFieldSubmissionRepo) GetAll(status *string) ([]models.FieldPurchaseSubmission, error) {
	result := []models.FieldPurchaseSubmission{}
	for _, submission := range m.submissions {
		if status != nil && *status != "" && submission.Status != *status {
			continue
		}
		result = append(result, *submission)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (m *mockFieldSubmissionRepo) Update(_ repositories.SQLExecutor, submission *models.FieldPurchaseSubmission) error {
	stored, ok := m.submissions[submission.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	stored.Status = submission.Status
	stored.ReviewedAt = submission.ReviewedAt
	stored.ReviewedBy = submission.ReviewedBy
	stored.ReviewNotes = submission.ReviewNotes
	stored.ApprovedPurchaseID = submission.ApprovedPurchaseID
	return nil
}
