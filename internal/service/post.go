package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spacetraveling/internal/logger"
	"github.com/spacetraveling/internal/prismic"
	"github.com/spacetraveling/internal/richtext"
)

// PostType is the custom type of blog posts in the content repository.
const PostType = "posts"

const postPathPrefix = "/post/"

// ErrMissingUID marks a post document without a slug. Such posts have no
// page and are left out of listings.
var ErrMissingUID = errors.New("post has no uid")

// PostSummary is the listing shape of a post.
type PostSummary struct {
	UID                  string     `json:"uid"`
	FirstPublicationDate *time.Time `json:"first_publication_date"`
	Title                string     `json:"title"`
	Subtitle             string     `json:"subtitle"`
	Author               string     `json:"author"`
}

// PostPagination is one page of summaries plus the cursor of the next page.
// An empty NextPage ends the collection.
type PostPagination struct {
	NextPage string        `json:"next_page"`
	Results  []PostSummary `json:"results"`
}

// ContentSection is a heading followed by rich text.
type ContentSection struct {
	Heading string
	Body    richtext.Blocks
}

// PostDetail is a full post.
type PostDetail struct {
	ID                   string
	UID                  string
	FirstPublicationDate *time.Time
	LastPublicationDate  *time.Time
	Title                string
	BannerURL            string
	BannerAlt            string
	Author               string
	Content              []ContentSection
}

// Edited reports whether the post was republished after its first publication.
func (p *PostDetail) Edited() bool {
	if p == nil || p.FirstPublicationDate == nil || p.LastPublicationDate == nil {
		return false
	}
	return p.LastPublicationDate.After(*p.FirstPublicationDate)
}

// NavigationLink points at a neighbouring post.
type NavigationLink struct {
	UID   string
	Title string
}

// NavigationLinks holds the optional previous and next posts.
type NavigationLinks struct {
	Previous *NavigationLink
	Next     *NavigationLink
}

type postData struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Author   string `json:"author"`
	Banner   struct {
		URL string `json:"url"`
		Alt string `json:"alt"`
	} `json:"banner"`
	Content []struct {
		Heading string          `json:"heading"`
		Body    richtext.Blocks `json:"body"`
	} `json:"content"`
}

func decodePostData(doc prismic.Document) (postData, error) {
	var data postData
	if len(doc.Data) == 0 || string(doc.Data) == "null" {
		return data, nil
	}
	if err := json.Unmarshal(doc.Data, &data); err != nil {
		return postData{}, fmt.Errorf("%w: document %s: %v", prismic.ErrInvalidResponse, doc.ID, err)
	}
	return data, nil
}

// MapSummary turns a raw posts document into a PostSummary.
func MapSummary(doc prismic.Document) (PostSummary, error) {
	if strings.TrimSpace(doc.UID) == "" {
		return PostSummary{}, fmt.Errorf("%w: document %s: %w", prismic.ErrInvalidResponse, doc.ID, ErrMissingUID)
	}
	data, err := decodePostData(doc)
	if err != nil {
		return PostSummary{}, err
	}
	return PostSummary{
		UID:                  doc.UID,
		FirstPublicationDate: doc.FirstPublicationDate.Ptr(),
		Title:                data.Title,
		Subtitle:             data.Subtitle,
		Author:               data.Author,
	}, nil
}

// MapSummaries maps every document, preserving order. Documents without a
// uid are skipped.
func MapSummaries(docs []prismic.Document) ([]PostSummary, error) {
	out := make([]PostSummary, 0, len(docs))
	for _, doc := range docs {
		summary, err := MapSummary(doc)
		if errors.Is(err, ErrMissingUID) {
			logger.WarnWithFields("skipping post without uid", logger.Fields{"id": doc.ID})
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, nil
}

func mapDetail(doc prismic.Document) (*PostDetail, error) {
	data, err := decodePostData(doc)
	if err != nil {
		return nil, err
	}
	post := &PostDetail{
		ID:                   doc.ID,
		UID:                  doc.UID,
		FirstPublicationDate: doc.FirstPublicationDate.Ptr(),
		LastPublicationDate:  doc.LastPublicationDate.Ptr(),
		Title:                data.Title,
		BannerURL:            data.Banner.URL,
		BannerAlt:            data.Banner.Alt,
		Author:               data.Author,
		Content:              make([]ContentSection, 0, len(data.Content)),
	}
	for _, section := range data.Content {
		post.Content = append(post.Content, ContentSection{Heading: section.Heading, Body: section.Body})
	}
	return post, nil
}
