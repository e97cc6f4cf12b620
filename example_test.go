package target_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	target "github.com/hugr-lab/target-mssql"
	"github.com/hugr-lab/target-mssql/message"
	"github.com/hugr-lab/target-mssql/schema"
)

func ExampleNewSchemaBuilder() {
	doc, err := target.NewSchemaBuilder("sales-orders").
		Property(target.PropertyDef{Name: "id", Kind: schema.KindInteger}).
		String("note", 50).
		Key("id").
		Document()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(doc))
	// Output: {"type":"object","properties":{"id":{"type":"integer"},"note":{"maxLength":50,"type":["string","null"]}}}
}

func ExampleTableNameFor() {
	fmt.Println(target.TableNameFor("sales-orders", ""))
	fmt.Println(target.TableNameFor("public-orders", ""))
	fmt.Println(target.TableNameFor("orders", "raw"))
	// Output:
	// sales.orders
	// dbo.orders
	// raw.orders
}

func ExampleOpen() {
	cfg := target.Config{
		Host:                   "localhost",
		User:                   "sa",
		Password:               os.Getenv("MSSQL_SA_PASSWORD"),
		Database:               "warehouse",
		TrustServerCertificate: true,
		ExtendedTypeMode:       true,
		PrimaryKeyMaxLength:    450,
		AllowColumnAdd:         true,
	}

	ctx := context.Background()
	t, err := target.Open(ctx, cfg, target.Options{StateOutput: os.Stdout})
	if err != nil {
		log.Fatal(err)
	}
	defer t.Close()

	input := strings.Join([]string{
		`{"type":"SCHEMA","stream":"sales-orders","schema":{"properties":{"id":{"type":"integer"},"note":{"type":["string","null"]}}},"key_properties":["id"]}`,
		`{"type":"RECORD","stream":"sales-orders","record":{"id":1,"note":"first"}}`,
		`{"type":"STATE","value":{"bookmark":1}}`,
	}, "\n")
	if err := t.Run(ctx, message.NewJSONReader(strings.NewReader(input))); err != nil {
		log.Fatal(err)
	}
}
