package tools

import "github.com/wilhg/xmcp/pkg/xapi"

// UserPage is a page of accounts.
type UserPage struct {
	Users      []xapi.User `json:"users"`
	NextCursor *string     `json:"next_cursor"`
	Note       string      `json:"note,omitempty"`
}

// TweetPage is a page of tweets.
type TweetPage struct {
	Tweets     []xapi.Tweet `json:"tweets"`
	NextCursor *string      `json:"next_cursor"`
	Note       string       `json:"note,omitempty"`
}

// SearchHit is a flattened search result.
type SearchHit struct {
	ID             string `json:"id"`
	Text           string `json:"text"`
	CreatedAt      string `json:"created_at"`
	AuthorID       string `json:"author_id"`
	AuthorName     string `json:"author_name"`
	AuthorUsername string `json:"author_username"`
	Likes          int    `json:"likes"`
	Retweets       int    `json:"retweets"`
	Replies        int    `json:"replies"`
	Quotes         int    `json:"quotes"`
	HasArticle     bool   `json:"has_article"`
}

// SearchResult is the result of search_twitter.
type SearchResult struct {
	Tweets     []SearchHit `json:"tweets"`
	NextCursor *string     `json:"next_cursor"`
}

// ArticleHit is a tweet linking to an X article.
type ArticleHit struct {
	TweetID        string `json:"tweet_id"`
	Text           string `json:"text"`
	CreatedAt      string `json:"created_at"`
	AuthorID       string `json:"author_id"`
	AuthorName     string `json:"author_name"`
	AuthorUsername string `json:"author_username"`
	ArticleTitle   string `json:"article_title"`
	ArticleURL     string `json:"article_url"`
	Likes          int    `json:"likes"`
	Retweets       int    `json:"retweets"`
}

// ArticleSearch is the result of search_articles.
type ArticleSearch struct {
	Articles   []ArticleHit `json:"articles"`
	Count      int          `json:"count"`
	NextCursor *string      `json:"next_cursor"`
}

// Trends is the result of get_trends.
type Trends struct {
	WOEID  int          `json:"woeid"`
	Trends []xapi.Trend `json:"trends"`
}

// Conversation is the result of get_conversation.
type Conversation struct {
	ConversationID string       `json:"conversation_id"`
	TweetCount     int          `json:"tweet_count"`
	Tweets         []xapi.Tweet `json:"tweets"`
}

// Replies is the result of get_replies.
type Replies struct {
	TweetID    string       `json:"tweet_id"`
	ReplyCount int          `json:"reply_count"`
	Replies    []xapi.Tweet `json:"replies"`
	NextCursor *string      `json:"next_cursor"`
}

// Quotes is the result of get_quote_tweets.
type Quotes struct {
	TweetID    string       `json:"tweet_id"`
	QuoteCount int          `json:"quote_count"`
	Quotes     []xapi.Tweet `json:"quotes"`
	NextCursor *string      `json:"next_cursor"`
}

// Thread is the result of create_thread.
type Thread struct {
	ThreadLength int                `json:"thread_length"`
	Tweets       []xapi.PostedTweet `json:"tweets"`
	FirstTweetID *string            `json:"first_tweet_id"`
	xapi.Review
}

// ListPage is a page of lists.
type ListPage struct {
	Lists      []xapi.List `json:"lists"`
	NextCursor *string     `json:"next_cursor"`
}

// EventPage is a page of direct message events.
type EventPage struct {
	Events     []xapi.DMEvent `json:"events"`
	NextCursor *string        `json:"next_cursor"`
}

func userPage(p xapi.Page[xapi.User]) *UserPage {
	return &UserPage{Users: nonNil(p.Items), NextCursor: next(p.NextCursor)}
}

func tweetPage(p xapi.Page[xapi.Tweet]) *TweetPage {
	return &TweetPage{Tweets: nonNil(p.Items), NextCursor: next(p.NextCursor)}
}

// withAuthors copies author name and username from the page expansions.
func withAuthors(p xapi.Page[xapi.Tweet]) []xapi.Tweet {
	out := make([]xapi.Tweet, 0, len(p.Items))
	for _, t := range p.Items {
		if u, ok := p.Users[t.AuthorID]; ok {
			t.AuthorName = u.Name
			t.AuthorUsername = u.Username
		}
		out = append(out, t)
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
