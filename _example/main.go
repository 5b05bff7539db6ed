// Example application: a small blog schema exercising model definition,
// scoped queries, relations and soft deletion. Expects PostgreSQL and
// config/app.yaml; run with APP_ENV=development.
package main

import (
	"context"
	"log"

	"github.com/shaurya/grail"
	"github.com/shaurya/grail/db"
	"github.com/shaurya/grail/orm"
)

func main() {
	app := grail.New().MustBoot()
	defer app.Log.Sync()

	user := orm.Define("User",
		orm.Columns(
			orm.Column{Name: "name", Rules: "required"},
			orm.Column{Name: "email", Rules: "required,email"},
			orm.Column{Name: "status"},
		),
		orm.Timestamps(),
		orm.GlobalScope("active", func(q *orm.Query) *orm.Query {
			return q.Where("status", "active")
		}),
		orm.HasMany("posts", "Post"),
	)

	orm.Define("Post",
		orm.Columns(
			orm.Column{Name: "title", Rules: "required"},
			orm.Column{Name: "user_id"},
		),
		orm.Timestamps(),
		orm.SoftDeletes(),
		orm.BelongsTo("author", "User"),
		orm.BelongsToMany("tags", "Tag"),
	)

	orm.Define("Tag", orm.Columns(orm.Column{Name: "name"}))

	ctx := context.Background()

	ada, err := user.Create(ctx, map[string]any{
		"name":   "Ada",
		"email":  "ada@example.com",
		"status": "active",
	})
	if err != nil {
		log.Fatal(err)
	}

	posts, err := ada.Relation("posts")
	if err != nil {
		log.Fatal(err)
	}
	post, err := posts.Create(ctx, map[string]any{"title": "Hello, world"})
	if err != nil {
		log.Fatal(err)
	}

	tags, err := post.Relation("tags")
	if err != nil {
		log.Fatal(err)
	}
	if err := tags.Attach(ctx, []any{1, 2}, nil); err != nil {
		log.Fatal(err)
	}

	// One query for the users, one per eager-loaded relation.
	active, err := user.Query().With("posts").Get(ctx)
	if err != nil {
		log.Fatal(err)
	}
	for _, u := range active {
		p, _ := u.Relation("posts")
		loaded, _ := p.LoadMany(ctx)
		log.Printf("%s has %d posts", u.GetString("name"), len(loaded))
	}

	// Reads after writes in one unit of work share the primary.
	err = db.Transaction(ctx, func(ctx context.Context) error {
		if err := post.Update(ctx, map[string]any{"title": "Hello again"}); err != nil {
			return err
		}
		fresh, err := post.Fresh(ctx)
		if err != nil {
			return err
		}
		log.Printf("title is now %q", fresh.GetString("title"))
		return post.Delete(ctx) // soft
	})
	if err != nil {
		log.Fatal(err)
	}
}
