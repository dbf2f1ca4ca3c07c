//go:build ignore

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"

	"prayer-times-ics/internal/logger"
)

func main() {
	projectID := flag.String("project", os.Getenv("PRAYER_FIRESTORE_PROJECT"), "GCP project ID")
	collection := flag.String("collection", "prayer_days", "Firestore collection name")
	emirate := flag.String("emirate", "", "Filter by emirate (optional)")
	city := flag.String("city", "", "Filter by city (optional)")
	month := flag.String("month", "", "Filter by month, e.g. 2025-01 (optional)")
	limit := flag.Int("limit", 10, "Max documents to return (0 for all)")
	countOnly := flag.Bool("count", false, "Only show archived days per city and month")
	flag.Parse()

	logger.Setup("info", true)

	ctx := context.Background()
	client, err := firestore.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Firestore client")
	}
	defer client.Close()

	coll := client.Collection(*collection)
	query := coll.Query
	if *emirate != "" {
		query = query.Where("emirate", "==", *emirate)
	}
	if *city != "" {
		query = query.Where("city", "==", *city)
	}
	if *month != "" {
		query = query.Where("month", "==", *month)
	}

	if *countOnly {
		showCounts(ctx, query)
		return
	}

	if *limit > 0 {
		query = query.Limit(*limit)
	}

	iter := query.Documents(ctx)
	count := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			log.Fatal().Err(err).Msg("error iterating documents")
		}

		jsonData, _ := json.MarshalIndent(doc.Data(), "", "  ")
		fmt.Printf("--- Document: %s ---\n%s\n\n", doc.Ref.ID, string(jsonData))
		count++
	}

	fmt.Printf("Total documents shown: %d\n", count)
}

func showCounts(ctx context.Context, query firestore.Query) {
	counts := make(map[string]int)
	total := 0

	iter := query.Documents(ctx)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			log.Fatal().Err(err).Msg("error iterating documents")
		}

		data := doc.Data()
		emirate, _ := data["emirate"].(string)
		city, _ := data["city"].(string)
		month, _ := data["month"].(string)
		counts[fmt.Sprintf("%s / %s / %s", emirate, city, month)]++
		total++
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Println("Archived days per city and month:")
	fmt.Println("---------------------------------")
	for _, k := range keys {
		fmt.Printf("%-45s %d\n", k, counts[k])
	}
	fmt.Println("---------------------------------")
	fmt.Printf("%-45s %d\n", "TOTAL", total)
}
