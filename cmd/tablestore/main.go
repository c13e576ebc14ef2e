/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/suparena/tablestore"
	"github.com/suparena/tablestore/config"
	"github.com/suparena/tablestore/datastore/ddb"
	"github.com/suparena/tablestore/keys"
	"github.com/suparena/tablestore/models"
)

var (
	configFlag  = flag.String("config", "", "Path to a YAML configuration file")
	tenantsFlag = flag.Int("tenants", 2, "Number of tenants to seed")
	usersFlag   = flag.Int("users", 3, "Users per tenant")
	postsFlag   = flag.Int("posts", 2, "Posts per user")
	rateFlag    = flag.Int("rate", 5, "Ratings added to every post")
	versionFlag = flag.Bool("version", false, "Show version information")
	vFlag       = flag.Bool("v", false, "Show version information (short)")
)

type summary struct {
	users, posts, comments, ratings, conflicts int
}

func main() {
	flag.Parse()

	if *versionFlag || *vFlag {
		fmt.Printf("tablestore seed %s\n", tablestore.GetVersionInfo())
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(*configFlag)
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	db, err := tablestore.Open(ctx, cfg,
		tablestore.WithStoreOptions(ddb.WithMetrics(ddb.NewMetrics("tablestore", reg))))
	if err != nil {
		return err
	}
	logger := db.Logger()
	defer logger.Sync()
	logger.Info("configuration loaded", zap.Strings("sources", cfg.LoadedFrom), zap.String("region", cfg.AWS.Region))

	if err := db.EnsureTables(ctx); err != nil {
		return err
	}

	started := time.Now()
	var sum summary
	for i := 0; i < *tenantsFlag; i++ {
		if err := seedTenant(ctx, db, fmt.Sprintf("tenant-%d", i+1), &sum); err != nil {
			return err
		}
	}

	logger.Info("seed completed",
		zap.Int("tenants", *tenantsFlag),
		zap.Int("users", sum.users),
		zap.Int("posts", sum.posts),
		zap.Int("comments", sum.comments),
		zap.Int("ratings", sum.ratings),
		zap.Int("conflicts", sum.conflicts),
		zap.Duration("elapsed", time.Since(started)),
	)
	return logOperations(logger, reg)
}

// logOperations logs the number of store operations per operation and outcome.
func logOperations(logger *zap.Logger, reg prometheus.Gatherer) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, family := range families {
		if family.GetName() != "tablestore_store_operations_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			fields := make([]zap.Field, 0, len(m.GetLabel())+1)
			for _, label := range m.GetLabel() {
				fields = append(fields, zap.String(label.GetName(), label.GetValue()))
			}
			fields = append(fields, zap.Float64("count", m.GetCounter().GetValue()))
			logger.Info("operations", fields...)
		}
	}
	return nil
}

func seedTenant(ctx context.Context, db *tablestore.DB, tenant string, sum *summary) error {
	logger := db.Logger().With(zap.String("tenant", tenant))

	users, err := tablestore.For[models.User](db)
	if err != nil {
		return err
	}
	posts, err := tablestore.For[models.BlogPost](db)
	if err != nil {
		return err
	}
	comments, err := tablestore.IndexedFor[models.Comment](db)
	if err != nil {
		return err
	}
	ratings, err := tablestore.AggregatesFor[models.BlogPost](db)
	if err != nil {
		return err
	}

	var authors []models.User
	var written []models.BlogPost
	for i := 0; i < *usersFlag; i++ {
		u := models.NewUser(tenant, fmt.Sprintf("user %d", i+1))
		if err := models.Validate(u); err != nil {
			return err
		}
		out, err := users.Create(ctx, u)
		if err := tablestore.Check("create user", u.ID.String(), out, err); err != nil {
			return err
		}
		authors = append(authors, u)
		sum.users++

		for j := 0; j < *postsFlag; j++ {
			p := models.NewBlogPost(tenant, u.ID, fmt.Sprintf("post %d of %s", j+1, u.Name), "lorem ipsum")
			if err := models.Validate(p); err != nil {
				return err
			}
			out, err := posts.Create(ctx, p)
			if err := tablestore.Check("create post", p.ID.String(), out, err); err != nil {
				return err
			}
			written = append(written, p)
			sum.posts++
		}
	}

	// Every author comments on every post.
	for _, p := range written {
		for _, u := range authors {
			c := models.NewComment(p.ID, u.ID, fmt.Sprintf("%s on %s", u.Name, p.Title))
			if err := models.Validate(c); err != nil {
				return err
			}
			out, err := comments.Create(ctx, c)
			if err := tablestore.Check("create comment", c.ID.String(), out, err); err != nil {
				return err
			}
			sum.comments++
		}
	}

	for _, u := range authors {
		mine, err := posts.GetByKeyPrefix(ctx, tenant, keys.OwnerPrefix(u.ID.String()))
		if err != nil {
			return err
		}
		for _, p := range mine {
			p.Title += " (edited)"
			out, err := posts.Update(ctx, p)
			if err := tablestore.Check("update post", p.ID.String(), out, err); err != nil {
				return err
			}
		}
		logger.Debug("posts edited", zap.String("user", u.ID.String()), zap.Int("posts", len(mine)))
	}

	if len(written) > 0 && len(authors) > 0 {
		byAuthor, err := comments.GetByIndex(ctx, written[0].ID.String(), authors[0].ID.String())
		if err != nil {
			return err
		}
		logger.Info("comments by author", zap.String("post", written[0].ID.String()), zap.Int("comments", len(byAuthor)))
	}

	for _, p := range written {
		sk := keys.CompositeSortKeyOf(p.UserID.String(), p.ID.String())
		for r := 0; r < *rateFlag; r++ {
			res, err := ratings.Contribute(ctx, tenant, sk, rand.Int64N(5)+1)
			if err != nil {
				return err
			}
			if !res.Outcome.OK() {
				sum.conflicts++
				logger.Warn("rating dropped", zap.String("sk", sk), zap.Stringer("outcome", res.Outcome))
				continue
			}
			sum.ratings++
		}
		agg, err := ratings.Get(ctx, tenant, sk)
		if err != nil {
			return err
		}
		if agg != nil {
			logger.Debug("rating", zap.String("sk", sk), zap.Int64("count", agg.Count), zap.Float64("avg", agg.Average))
		}
	}

	n, err := posts.Count(ctx, tenant)
	if err != nil {
		return err
	}
	logger.Info("tenant seeded", zap.Int("posts", n))
	return nil
}
