// Package catalogstore persists canonical product records to sqlite or
// libsql. It is the hand-off point at the end of a scraping run; the
// scraping core only ever talks to it through Store.
package catalogstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"beanscout-backend/lib/catalog"
	"beanscout-backend/lib/vocab"
	"beanscout-backend/services/catalogstore/db"

	"go.opentelemetry.io/otel"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

var tracer = otel.Tracer("beanscout.services.catalogstore")

type Store struct {
	db  *sql.DB
	qry *db.Queries
}

func NewStore(database *sql.DB) Store {
	return Store{
		db:  database,
		qry: db.New(database),
	}
}

// UpsertRoaster creates or refreshes the roaster row and returns its id.
func (s Store) UpsertRoaster(ctx context.Context, roaster catalog.Roaster) (int64, error) {
	ctx, span := tracer.Start(ctx, "UpsertRoaster")
	defer span.End()

	return s.qry.UpsertRoaster(ctx, db.UpsertRoasterParams{
		Slug:       roaster.Slug,
		Name:       roaster.Name,
		WebsiteUrl: roaster.WebsiteUrl,
	})
}

// UpsertProducts writes a batch of products in one transaction. Prices
// are replaced wholesale; flavor profile and brew method links are
// additive. Returns the number of products written.
func (s Store) UpsertProducts(ctx context.Context, roasterId int64, products []catalog.Product) (int, error) {
	ctx, span := tracer.Start(ctx, "UpsertProducts")
	defer span.End()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	now := time.Now().Unix()
	written := 0
	for _, product := range products {
		tags, err := json.Marshal(product.Tags)
		if err != nil {
			tags = []byte("[]")
		}

		coffeeId, err := txqry.UpsertCoffee(ctx, db.UpsertCoffeeParams{
			RoasterID:      roasterId,
			Slug:           product.Slug,
			Name:           product.Name,
			Description:    product.Description,
			RoastLevel:     string(product.RoastLevel),
			BeanType:       string(product.BeanType),
			Process:        string(product.Process),
			RegionName:     product.RegionName,
			ImageUrl:       product.ImageUrl,
			DirectBuyUrl:   product.DirectBuyUrl,
			IsSeasonal:     product.IsSeasonal,
			IsAvailable:    product.IsAvailable,
			IsFeatured:     product.IsFeatured,
			IsSingleOrigin: product.IsSingleOrigin,
			Tags:           string(tags),
			EnrichedByLlm:  product.EnrichedByLlm,
			UpdatedAt:      now,
		})
		if err != nil {
			return 0, err
		}

		err = txqry.DeleteCoffeePrices(ctx, coffeeId)
		if err != nil {
			return 0, err
		}
		for grams, price := range product.Prices {
			err := txqry.CreateCoffeePrice(ctx, db.CreateCoffeePriceParams{
				CoffeeID:    coffeeId,
				WeightGrams: int64(grams),
				Price:       price,
			})
			if err != nil {
				return 0, err
			}
		}

		for _, flavor := range product.FlavorProfiles {
			flavorId, err := txqry.GetOrCreateFlavorProfile(ctx, flavor)
			if err != nil {
				return 0, err
			}
			err = txqry.LinkCoffeeFlavorProfile(ctx, db.LinkCoffeeFlavorProfileParams{
				CoffeeID:        coffeeId,
				FlavorProfileID: flavorId,
			})
			if err != nil {
				return 0, err
			}
		}
		for _, method := range product.BrewMethods {
			methodId, err := txqry.GetOrCreateBrewMethod(ctx, method)
			if err != nil {
				return 0, err
			}
			err = txqry.LinkCoffeeBrewMethod(ctx, db.LinkCoffeeBrewMethodParams{
				CoffeeID:     coffeeId,
				BrewMethodID: methodId,
			})
			if err != nil {
				return 0, err
			}
		}

		written++
	}

	return written, tx.Commit()
}

// Coffees returns the stored coffees for a roaster, with prices and
// flavor links resolved. Intended for the cli and for tests.
func (s Store) Coffees(ctx context.Context, roasterId int64) ([]catalog.Product, error) {
	ctx, span := tracer.Start(ctx, "Coffees")
	defer span.End()

	rows, err := s.qry.GetCoffeesByRoaster(ctx, roasterId)
	if err != nil {
		return nil, err
	}

	out := make([]catalog.Product, 0, len(rows))
	for _, row := range rows {
		prices, err := s.qry.GetCoffeePrices(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		flavors, err := s.qry.GetCoffeeFlavorProfiles(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		brewMethods, err := s.qry.GetCoffeeBrewMethods(ctx, row.ID)
		if err != nil {
			return nil, err
		}

		var tags []string
		if err := json.Unmarshal([]byte(row.Tags), &tags); err != nil {
			slog.WarnContext(ctx, "skipping malformed tags column", "coffee", row.Slug, "err", err)
		}

		out = append(out, catalog.Product{
			RoasterId:      roasterId,
			Slug:           row.Slug,
			Name:           row.Name,
			Description:    row.Description,
			RoastLevel:     vocab.RoastLevel(row.RoastLevel),
			BeanType:       vocab.BeanType(row.BeanType),
			Process:        vocab.ProcessMethod(row.Process),
			RegionName:     row.RegionName,
			ImageUrl:       row.ImageUrl,
			DirectBuyUrl:   row.DirectBuyUrl,
			IsSeasonal:     row.IsSeasonal,
			IsAvailable:    row.IsAvailable,
			IsFeatured:     row.IsFeatured,
			IsSingleOrigin: row.IsSingleOrigin,
			Tags:           tags,
			FlavorProfiles: flavors,
			BrewMethods:    brewMethods,
			Prices:         prices,
			EnrichedByLlm:  row.EnrichedByLlm,
		})
	}
	return out, nil
}
