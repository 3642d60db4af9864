package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type UpsertRoasterParams struct {
	Slug       string
	Name       string
	WebsiteUrl string
}

func (q *Queries) UpsertRoaster(ctx context.Context, arg UpsertRoasterParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO roasters (slug, name, website_url)
		VALUES (?, ?, ?)
		ON CONFLICT (slug) DO UPDATE SET
			name = excluded.name,
			website_url = excluded.website_url
		RETURNING id
	`, arg.Slug, arg.Name, arg.WebsiteUrl)

	var id int64
	err := row.Scan(&id)
	return id, err
}

type UpsertCoffeeParams struct {
	RoasterID      int64
	Slug           string
	Name           string
	Description    string
	RoastLevel     string
	BeanType       string
	Process        string
	RegionName     string
	ImageUrl       string
	DirectBuyUrl   string
	IsSeasonal     bool
	IsAvailable    bool
	IsFeatured     bool
	IsSingleOrigin bool
	Tags           string
	EnrichedByLlm  bool
	UpdatedAt      int64
}

func (q *Queries) UpsertCoffee(ctx context.Context, arg UpsertCoffeeParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO coffees (
			roaster_id, slug, name, description,
			roast_level, bean_type, processing_method, region_name,
			image_url, direct_buy_url,
			is_seasonal, is_available, is_featured, is_single_origin,
			tags, enriched_by_llm, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (roaster_id, slug) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			roast_level = excluded.roast_level,
			bean_type = excluded.bean_type,
			processing_method = excluded.processing_method,
			region_name = excluded.region_name,
			image_url = excluded.image_url,
			direct_buy_url = excluded.direct_buy_url,
			is_seasonal = excluded.is_seasonal,
			is_available = excluded.is_available,
			is_featured = excluded.is_featured,
			is_single_origin = excluded.is_single_origin,
			tags = excluded.tags,
			enriched_by_llm = excluded.enriched_by_llm,
			updated_at = excluded.updated_at
		RETURNING id
	`,
		arg.RoasterID, arg.Slug, arg.Name, arg.Description,
		arg.RoastLevel, arg.BeanType, arg.Process, arg.RegionName,
		arg.ImageUrl, arg.DirectBuyUrl,
		arg.IsSeasonal, arg.IsAvailable, arg.IsFeatured, arg.IsSingleOrigin,
		arg.Tags, arg.EnrichedByLlm, arg.UpdatedAt,
	)

	var id int64
	err := row.Scan(&id)
	return id, err
}

func (q *Queries) DeleteCoffeePrices(ctx context.Context, coffeeId int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM coffee_prices WHERE coffee_id = ?`, coffeeId)
	return err
}

type CreateCoffeePriceParams struct {
	CoffeeID    int64
	WeightGrams int64
	Price       float64
}

func (q *Queries) CreateCoffeePrice(ctx context.Context, arg CreateCoffeePriceParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO coffee_prices (coffee_id, weight_grams, price)
		VALUES (?, ?, ?)
	`, arg.CoffeeID, arg.WeightGrams, arg.Price)
	return err
}

func (q *Queries) GetOrCreateFlavorProfile(ctx context.Context, name string) (int64, error) {
	_, err := q.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO flavor_profiles (name) VALUES (?)
	`, name)
	if err != nil {
		return 0, err
	}
	row := q.db.QueryRowContext(ctx, `SELECT id FROM flavor_profiles WHERE name = ?`, name)
	var id int64
	err = row.Scan(&id)
	return id, err
}

type LinkCoffeeFlavorProfileParams struct {
	CoffeeID        int64
	FlavorProfileID int64
}

func (q *Queries) LinkCoffeeFlavorProfile(ctx context.Context, arg LinkCoffeeFlavorProfileParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO coffee_flavor_profiles (coffee_id, flavor_profile_id)
		VALUES (?, ?)
	`, arg.CoffeeID, arg.FlavorProfileID)
	return err
}

func (q *Queries) GetOrCreateBrewMethod(ctx context.Context, name string) (int64, error) {
	_, err := q.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO brew_methods (name) VALUES (?)
	`, name)
	if err != nil {
		return 0, err
	}
	row := q.db.QueryRowContext(ctx, `SELECT id FROM brew_methods WHERE name = ?`, name)
	var id int64
	err = row.Scan(&id)
	return id, err
}

type LinkCoffeeBrewMethodParams struct {
	CoffeeID     int64
	BrewMethodID int64
}

func (q *Queries) LinkCoffeeBrewMethod(ctx context.Context, arg LinkCoffeeBrewMethodParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO coffee_brew_methods (coffee_id, brew_method_id)
		VALUES (?, ?)
	`, arg.CoffeeID, arg.BrewMethodID)
	return err
}

type CoffeeRow struct {
	ID             int64
	Slug           string
	Name           string
	Description    string
	RoastLevel     string
	BeanType       string
	Process        string
	RegionName     string
	ImageUrl       string
	DirectBuyUrl   string
	IsSeasonal     bool
	IsAvailable    bool
	IsFeatured     bool
	IsSingleOrigin bool
	Tags           string
	EnrichedByLlm  bool
}

func (q *Queries) GetCoffeesByRoaster(ctx context.Context, roasterId int64) ([]CoffeeRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, slug, name, description, roast_level, bean_type,
			processing_method, region_name, image_url, direct_buy_url,
			is_seasonal, is_available, is_featured, is_single_origin,
			tags, enriched_by_llm
		FROM coffees
		WHERE roaster_id = ?
		ORDER BY slug
	`, roasterId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CoffeeRow
	for rows.Next() {
		var r CoffeeRow
		err := rows.Scan(
			&r.ID, &r.Slug, &r.Name, &r.Description, &r.RoastLevel,
			&r.BeanType, &r.Process, &r.RegionName, &r.ImageUrl,
			&r.DirectBuyUrl, &r.IsSeasonal, &r.IsAvailable, &r.IsFeatured,
			&r.IsSingleOrigin, &r.Tags, &r.EnrichedByLlm,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q *Queries) GetCoffeePrices(ctx context.Context, coffeeId int64) (map[int]float64, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT weight_grams, price FROM coffee_prices WHERE coffee_id = ?
	`, coffeeId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int]float64{}
	for rows.Next() {
		var grams int64
		var price float64
		if err := rows.Scan(&grams, &price); err != nil {
			return nil, err
		}
		out[int(grams)] = price
	}
	return out, rows.Err()
}

func (q *Queries) GetCoffeeFlavorProfiles(ctx context.Context, coffeeId int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT fp.name
		FROM coffee_flavor_profiles cfp
		JOIN flavor_profiles fp ON fp.id = cfp.flavor_profile_id
		WHERE cfp.coffee_id = ?
		ORDER BY fp.name
	`, coffeeId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (q *Queries) GetCoffeeBrewMethods(ctx context.Context, coffeeId int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT bm.name
		FROM coffee_brew_methods cbm
		JOIN brew_methods bm ON bm.id = cbm.brew_method_id
		WHERE cbm.coffee_id = ?
		ORDER BY bm.name
	`, coffeeId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
