package entstore

import (
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

var textType = map[string]string{dialect.Postgres: "text", dialect.SQLite: "text"}

var (
	// ReceiptsColumns holds the columns for the "receipts" table.
	ReceiptsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "tool", Type: field.TypeString},
		{Name: "tool_group", Type: field.TypeString},
		{Name: "category", Type: field.TypeString},
		{Name: "profile", Type: field.TypeString},
		{Name: "outcome", Type: field.TypeString},
		{Name: "status", Type: field.TypeInt},
		{Name: "duration_ms", Type: field.TypeInt64},
		{Name: "created_at", Type: field.TypeInt64},
	}
	// ReceiptsTable holds the schema information for the "receipts" table.
	ReceiptsTable = &schema.Table{
		Name:       "receipts",
		Columns:    ReceiptsColumns,
		PrimaryKey: []*schema.Column{ReceiptsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "receipt_created_at", Columns: []*schema.Column{ReceiptsColumns[8]}},
			{Name: "receipt_tool_created_at", Columns: []*schema.Column{ReceiptsColumns[1], ReceiptsColumns[8]}},
		},
	}
	// ScheduledPostsColumns holds the columns for the "scheduled_posts" table.
	ScheduledPostsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "text", Type: field.TypeString, SchemaType: textType},
		{Name: "reply_to", Type: field.TypeString},
		{Name: "media_paths", Type: field.TypeString, SchemaType: textType},
		{Name: "scheduled_at", Type: field.TypeInt64},
		{Name: "status", Type: field.TypeString},
		{Name: "tweet_id", Type: field.TypeString},
		{Name: "error", Type: field.TypeString, SchemaType: textType},
		{Name: "created_at", Type: field.TypeInt64},
		{Name: "updated_at", Type: field.TypeInt64},
		{Name: "credentials", Type: field.TypeBytes, Nullable: true},
	}
	// ScheduledPostsTable holds the schema information for the "scheduled_posts" table.
	ScheduledPostsTable = &schema.Table{
		Name:       "scheduled_posts",
		Columns:    ScheduledPostsColumns,
		PrimaryKey: []*schema.Column{ScheduledPostsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "scheduledpost_status_scheduled_at", Columns: []*schema.Column{ScheduledPostsColumns[5], ScheduledPostsColumns[4]}},
		},
	}
	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		ReceiptsTable,
		ScheduledPostsTable,
	}
)
