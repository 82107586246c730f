package checkout

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	entities "github.com/clubifyhq/checkout-go/internal/domain/entities/checkout"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/logging"
)

// OrderRepository persists orders. Orders are written once and mutated only
// through status transitions, so no cache layer sits in front of it.
type OrderRepository struct {
	db     *sql.DB
	logger *logging.ChanneledLogger
}

func NewOrderRepository(db *sql.DB, logger *logging.ChanneledLogger) *OrderRepository {
	return &OrderRepository{
		db:     db,
		logger: logger,
	}
}

const orderColumns = `id, cart_id, session_id, organization_id, flow_id, customer_json, items_json,
	totals_json, currency, payment_method, gateway_txn_id, installments, coupon_code, status,
	created_at, paid_at, updated_at`

func (r *OrderRepository) FindByID(tenantID, id string) (*entities.Order, error) {
	return r.loadByQuery(fmt.Sprintf(`SELECT %s FROM orders WHERE id = ?`, orderColumns), id)
}

func (r *OrderRepository) FindByCartID(tenantID, cartID string) (*entities.Order, error) {
	return r.loadByQuery(
		fmt.Sprintf(`SELECT %s FROM orders WHERE cart_id = ? ORDER BY created_at DESC LIMIT 1`, orderColumns),
		cartID)
}

func (r *OrderRepository) Store(tenantID string, order *entities.Order) error {
	customerJSON, err := json.Marshal(order.Customer)
	if err != nil {
		return fmt.Errorf("failed to encode order customer: %w", err)
	}
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to encode order items: %w", err)
	}
	totalsJSON, err := json.Marshal(order.Totals)
	if err != nil {
		return fmt.Errorf("failed to encode order totals: %w", err)
	}

	query := `INSERT INTO orders (` + orderColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	start := time.Now()
	r.logger.Database().Debug("Executing order insert", "id", order.ID, "tenantId", tenantID)

	_, err = r.db.Exec(query,
		order.ID, order.CartID, order.SessionID, order.OrganizationID, order.FlowID,
		string(customerJSON), string(itemsJSON), string(totalsJSON), order.Currency,
		string(order.PaymentMethod), order.GatewayTxnID, order.Installments, order.CouponCode,
		string(order.Status), order.CreatedAt, order.PaidAt, order.UpdatedAt)
	if err != nil {
		r.logger.Database().Error("Order insert failed", "error", err.Error(), "id", order.ID)
		return fmt.Errorf("failed to insert order: %w", err)
	}

	r.logger.Database().Debug("Order insert completed", "id", order.ID, "duration", time.Since(start))
	return nil
}

func (r *OrderRepository) Update(tenantID string, order *entities.Order) error {
	query := `UPDATE orders SET gateway_txn_id = ?, status = ?, paid_at = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.Exec(query,
		order.GatewayTxnID, string(order.Status), order.PaidAt, order.UpdatedAt, order.ID)
	if err != nil {
		r.logger.Database().Error("Order update failed", "error", err.Error(), "id", order.ID)
		return fmt.Errorf("failed to update order: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("order %s not found", order.ID)
	}
	return nil
}

func (r *OrderRepository) FindByPeriod(tenantID string, from, to time.Time) ([]*entities.Order, error) {
	rows, err := r.db.Query(
		fmt.Sprintf(`SELECT %s FROM orders WHERE created_at >= ? AND created_at < ? ORDER BY created_at`, orderColumns),
		from, to)
	if err != nil {
		return nil, fmt.Errorf("order query failed: %w", err)
	}
	defer rows.Close()

	var orders []*entities.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (r *OrderRepository) loadByQuery(query string, args ...any) (*entities.Order, error) {
	order, err := scanOrder(r.db.QueryRow(query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return order, err
}

func scanOrder(row rowScanner) (*entities.Order, error) {
	var order entities.Order
	var customerJSON, itemsJSON, totalsJSON, paymentMethod, status string
	var flowID, gatewayTxnID, couponCode sql.NullString
	var paidAt sql.NullTime

	err := row.Scan(&order.ID, &order.CartID, &order.SessionID, &order.OrganizationID, &flowID,
		&customerJSON, &itemsJSON, &totalsJSON, &order.Currency, &paymentMethod, &gatewayTxnID,
		&order.Installments, &couponCode, &status, &order.CreatedAt, &paidAt, &order.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}

	order.FlowID = flowID.String
	order.GatewayTxnID = gatewayTxnID.String
	order.CouponCode = couponCode.String
	order.PaymentMethod = entities.PaymentMethod(paymentMethod)
	order.Status = entities.OrderStatus(status)
	if paidAt.Valid {
		order.PaidAt = &paidAt.Time
	}

	if err := json.Unmarshal([]byte(customerJSON), &order.Customer); err != nil {
		return nil, fmt.Errorf("failed to decode order customer: %w", err)
	}
	if err := json.Unmarshal([]byte(itemsJSON), &order.Items); err != nil {
		return nil, fmt.Errorf("failed to decode order items: %w", err)
	}
	if err := json.Unmarshal([]byte(totalsJSON), &order.Totals); err != nil {
		return nil, fmt.Errorf("failed to decode order totals: %w", err)
	}
	return &order, nil
}
