// Package search pushes video documents to Elasticsearch so the filter and
// discovery indexes see tags, hashtags and the generated description.
package search

import (
	"context"
	"time"

	"FoodTok.com/cmd/model"
	"github.com/olivere/elastic/v7"
)

type Document struct {
	VideoID     string    `json:"videoId"`
	OwnerID     string    `json:"ownerId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Privacy     string    `json:"privacy"`
	Status      string    `json:"status"`
	Tags        []string  `json:"tags"`
	Hashtags    []string  `json:"hashtags"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// DocumentFromVideo tags 使用调用方刚计算出的值, 可能比 v.Tags 新
func DocumentFromVideo(v *model.Video, tags []string) *Document {
	return &Document{
		VideoID:     v.ID,
		OwnerID:     v.OwnerID,
		Title:       v.Title,
		Description: v.Description,
		Privacy:     v.Privacy,
		Status:      v.Status,
		Tags:        tags,
		Hashtags:    v.Hashtags.Sorted(),
		UpdatedAt:   v.UpdatedAt,
	}
}

type Indexer interface {
	IndexVideo(ctx context.Context, doc *Document) error
	DeleteVideo(ctx context.Context, videoID string) error
}

type ElasticIndexer struct {
	client *elastic.Client
	index  string
}

func NewElasticIndexer(url, index string, options ...elastic.ClientOptionFunc) (*ElasticIndexer, error) {
	opts := append([]elastic.ClientOptionFunc{
		elastic.SetURL(url),
		elastic.SetSniff(false),
	}, options...)
	client, err := elastic.NewClient(opts...)
	if err != nil {
		return nil, err
	}
	return &ElasticIndexer{client: client, index: index}, nil
}

func (e *ElasticIndexer) IndexVideo(ctx context.Context, doc *Document) error {
	_, err := e.client.Index().
		Index(e.index).
		Id(doc.VideoID).
		BodyJson(doc).
		Do(ctx)
	return err
}

// DeleteVideo 文档不存在不算错误
func (e *ElasticIndexer) DeleteVideo(ctx context.Context, videoID string) error {
	_, err := e.client.Delete().Index(e.index).Id(videoID).Do(ctx)
	if err != nil && !elastic.IsNotFound(err) {
		return err
	}
	return nil
}

// NopIndexer 未配置搜索服务时使用
type NopIndexer struct{}

func (NopIndexer) IndexVideo(context.Context, *Document) error { return nil }
func (NopIndexer) DeleteVideo(context.Context, string) error   { return nil }
