// Package checkout provides cart and order repositories
package checkout

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	entities "github.com/clubifyhq/checkout-go/internal/domain/entities/checkout"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/caching/interfaces"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/logging"
)

type CartRepository struct {
	db     *sql.DB
	cache  interfaces.CartCache
	logger *logging.ChanneledLogger
}

func NewCartRepository(db *sql.DB, cache interfaces.CartCache, logger *logging.ChanneledLogger) *CartRepository {
	return &CartRepository{
		db:     db,
		cache:  cache,
		logger: logger,
	}
}

const cartColumns = `id, session_id, organization_id, offer_id, currency, status, shipping, permissive,
	items_json, coupon_json, shipping_address_json, billing_address_json, created_at, updated_at`

func (r *CartRepository) FindByID(tenantID, id string) (*entities.Cart, error) {
	if cart, found := r.cache.GetCart(tenantID, id); found {
		return cart, nil
	}

	cart, err := r.loadByQuery(fmt.Sprintf(`SELECT %s FROM carts WHERE id = ?`, cartColumns), id)
	if err != nil || cart == nil {
		return cart, err
	}

	r.cache.SetCart(tenantID, cart)
	return cart, nil
}

func (r *CartRepository) FindBySessionID(tenantID, sessionID string) (*entities.Cart, error) {
	if cart, found := r.cache.GetCartBySession(tenantID, sessionID); found {
		return cart, nil
	}

	cart, err := r.loadByQuery(
		fmt.Sprintf(`SELECT %s FROM carts WHERE session_id = ? ORDER BY updated_at DESC LIMIT 1`, cartColumns),
		sessionID)
	if err != nil || cart == nil {
		return cart, err
	}

	r.cache.SetCart(tenantID, cart)
	return cart, nil
}

func (r *CartRepository) Store(tenantID string, cart *entities.Cart) error {
	itemsJSON, couponJSON, shipJSON, billJSON, err := marshalCartBlobs(cart)
	if err != nil {
		return err
	}

	query := `INSERT INTO carts (` + cartColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	start := time.Now()
	r.logger.Database().Debug("Executing cart insert", "id", cart.ID, "tenantId", tenantID)

	_, err = r.db.Exec(query,
		cart.ID, cart.SessionID, cart.OrganizationID, cart.OfferID, cart.Currency,
		string(cart.Status), cart.Shipping, boolToInt(cart.Permissive),
		itemsJSON, couponJSON, shipJSON, billJSON, cart.CreatedAt, cart.UpdatedAt)
	if err != nil {
		r.logger.Database().Error("Cart insert failed", "error", err.Error(), "id", cart.ID)
		return fmt.Errorf("failed to insert cart: %w", err)
	}

	r.logger.Database().Debug("Cart insert completed", "id", cart.ID, "duration", time.Since(start))
	r.cache.SetCart(tenantID, cart)
	return nil
}

func (r *CartRepository) Update(tenantID string, cart *entities.Cart) error {
	itemsJSON, couponJSON, shipJSON, billJSON, err := marshalCartBlobs(cart)
	if err != nil {
		return err
	}

	query := `UPDATE carts SET session_id = ?, offer_id = ?, currency = ?, status = ?, shipping = ?,
		permissive = ?, items_json = ?, coupon_json = ?, shipping_address_json = ?,
		billing_address_json = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.Exec(query,
		cart.SessionID, cart.OfferID, cart.Currency, string(cart.Status), cart.Shipping,
		boolToInt(cart.Permissive), itemsJSON, couponJSON, shipJSON, billJSON,
		cart.UpdatedAt, cart.ID)
	if err != nil {
		r.logger.Database().Error("Cart update failed", "error", err.Error(), "id", cart.ID)
		return fmt.Errorf("failed to update cart: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("cart %s not found", cart.ID)
	}

	r.cache.SetCart(tenantID, cart)
	return nil
}

func (r *CartRepository) Delete(tenantID, id string) error {
	if _, err := r.db.Exec(`DELETE FROM carts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	r.cache.InvalidateCart(tenantID, id)
	return nil
}

// FindIdleBefore returns active carts not touched since cutoff. Used by the
// lifecycle sweeper to mark abandonment.
func (r *CartRepository) FindIdleBefore(tenantID string, cutoff time.Time) ([]*entities.Cart, error) {
	return r.loadAllByQuery(
		fmt.Sprintf(`SELECT %s FROM carts WHERE status = 'active' AND updated_at < ?`, cartColumns),
		cutoff)
}

// FindAbandonedBefore returns abandoned carts not touched since cutoff.
func (r *CartRepository) FindAbandonedBefore(tenantID string, cutoff time.Time) ([]*entities.Cart, error) {
	return r.loadAllByQuery(
		fmt.Sprintf(`SELECT %s FROM carts WHERE status = 'abandoned' AND updated_at < ?`, cartColumns),
		cutoff)
}

func (r *CartRepository) loadByQuery(query string, args ...any) (*entities.Cart, error) {
	cart, err := scanCart(r.db.QueryRow(query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return cart, err
}

func (r *CartRepository) loadAllByQuery(query string, args ...any) ([]*entities.Cart, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("cart query failed: %w", err)
	}
	defer rows.Close()

	var carts []*entities.Cart
	for rows.Next() {
		cart, err := scanCart(rows)
		if err != nil {
			return nil, err
		}
		carts = append(carts, cart)
	}
	return carts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCart(row rowScanner) (*entities.Cart, error) {
	var cart entities.Cart
	var status string
	var permissive int
	var itemsJSON string
	var couponJSON, shipJSON, billJSON, offerID sql.NullString

	err := row.Scan(&cart.ID, &cart.SessionID, &cart.OrganizationID, &offerID, &cart.Currency,
		&status, &cart.Shipping, &permissive, &itemsJSON, &couponJSON, &shipJSON, &billJSON,
		&cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan cart: %w", err)
	}

	cart.OfferID = offerID.String
	cart.Status = entities.CartStatus(status)
	cart.Permissive = permissive != 0

	if err := json.Unmarshal([]byte(itemsJSON), &cart.Items); err != nil {
		return nil, fmt.Errorf("failed to decode cart items: %w", err)
	}
	if couponJSON.Valid && couponJSON.String != "" {
		if err := json.Unmarshal([]byte(couponJSON.String), &cart.Coupon); err != nil {
			return nil, fmt.Errorf("failed to decode cart coupon: %w", err)
		}
	}
	if shipJSON.Valid && shipJSON.String != "" {
		if err := json.Unmarshal([]byte(shipJSON.String), &cart.ShippingAddress); err != nil {
			return nil, fmt.Errorf("failed to decode shipping address: %w", err)
		}
	}
	if billJSON.Valid && billJSON.String != "" {
		if err := json.Unmarshal([]byte(billJSON.String), &cart.BillingAddress); err != nil {
			return nil, fmt.Errorf("failed to decode billing address: %w", err)
		}
	}
	return &cart, nil
}

func marshalCartBlobs(cart *entities.Cart) (items, coupon, ship, bill string, err error) {
	itemsBytes, err := json.Marshal(cart.Items)
	if err != nil {
		return "", "", "", "", fmt.Errorf("failed to encode cart items: %w", err)
	}
	items = string(itemsBytes)

	if cart.Coupon != nil {
		couponBytes, err := json.Marshal(cart.Coupon)
		if err != nil {
			return "", "", "", "", fmt.Errorf("failed to encode coupon: %w", err)
		}
		coupon = string(couponBytes)
	}
	if cart.ShippingAddress != nil {
		shipBytes, err := json.Marshal(cart.ShippingAddress)
		if err != nil {
			return "", "", "", "", fmt.Errorf("failed to encode shipping address: %w", err)
		}
		ship = string(shipBytes)
	}
	if cart.BillingAddress != nil {
		billBytes, err := json.Marshal(cart.BillingAddress)
		if err != nil {
			return "", "", "", "", fmt.Errorf("failed to encode billing address: %w", err)
		}
		bill = string(billBytes)
	}
	return items, coupon, ship, bill, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
