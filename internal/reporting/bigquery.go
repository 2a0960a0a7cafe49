// Package reporting строит отчёты по комиссиям партнёров на данных BigQuery.
package reporting

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

var datasetPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+(\.[A-Za-z0-9_]+)?$`)

// CommissionRow описывает строку отчёта по одному партнёру.
type CommissionRow struct {
	AffiliateID string    `bigquery:"affiliate_id" json:"affiliate_id"`
	Orders      int64     `bigquery:"orders" json:"orders"`
	Sales       float64   `bigquery:"sales" json:"sales"`
	Commission  float64   `bigquery:"commission" json:"commission"`
	LastOrderAt time.Time `bigquery:"last_order_at" json:"last_order_at"`
}

// Reporter выполняет только читающие запросы к набору данных с заказами и журналом баллов.
type Reporter struct {
	client  *bigquery.Client
	dataset string
}

// NewReporter подключается к BigQuery проекта project; dataset задаёт имя набора данных
// (например, "backoffice" или "project.backoffice").
func NewReporter(ctx context.Context, project, dataset string, opts ...option.ClientOption) (*Reporter, error) {
	if !datasetPattern.MatchString(dataset) {
		return nil, fmt.Errorf("invalid dataset name %q", dataset)
	}

	client, err := bigquery.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}

	return &Reporter{client: client, dataset: dataset}, nil
}

// Close закрывает клиент BigQuery.
func (r *Reporter) Close() error {
	return r.client.Close()
}

func commissionsQuery(dataset string) string {
	return fmt.Sprintf("SELECT\n"+
		"  t.customer_id AS affiliate_id,\n"+
		"  COUNT(DISTINCT o.id) AS orders,\n"+
		"  COALESCE(SUM(o.total_price), 0) AS sales,\n"+
		"  COALESCE(SUM(t.points), 0) / 100 AS commission,\n"+
		"  MAX(o.created_at) AS last_order_at\n"+
		"FROM `%[1]s.point_transactions` AS t\n"+
		"JOIN `%[1]s.orders` AS o ON CAST(o.id AS STRING) = t.reference_id\n"+
		"WHERE t.reference_type = 'shopify_order'\n"+
		"  AND t.category = 'earning'\n"+
		"  AND t.status = 'confirmed'\n"+
		"  AND o.created_at >= @from AND o.created_at < @to\n"+
		"GROUP BY affiliate_id\n"+
		"ORDER BY commission DESC", dataset)
}

// Commissions возвращает продажи и комиссии партнёров за полуинтервал [from, to).
func (r *Reporter) Commissions(ctx context.Context, from, to time.Time) ([]CommissionRow, error) {
	q := r.client.Query(commissionsQuery(r.dataset))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "from", Value: from.UTC()},
		{Name: "to", Value: to.UTC()},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("run commissions query: %w", err)
	}

	var res []CommissionRow
	for {
		var row CommissionRow
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read commissions row: %w", err)
		}
		res = append(res, row)
	}

	return res, nil
}
