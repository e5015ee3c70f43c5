package xapi

// UserMetrics are the public counters of a user.
type UserMetrics struct {
	FollowersCount int `json:"followers_count"`
	FollowingCount int `json:"following_count"`
	TweetCount     int `json:"tweet_count"`
	ListedCount    int `json:"listed_count"`
	LikeCount      int `json:"like_count,omitempty"`
}

// User is an X account.
type User struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Username        string       `json:"username"`
	ProfileImageURL string       `json:"profile_image_url,omitempty"`
	Description     string       `json:"description,omitempty"`
	PublicMetrics   *UserMetrics `json:"public_metrics,omitempty"`
	Verified        bool         `json:"verified,omitempty"`
	CreatedAt       string       `json:"created_at,omitempty"`
	Location        string       `json:"location,omitempty"`
	URL             string       `json:"url,omitempty"`
}

// TweetMetrics are the public counters of a tweet.
type TweetMetrics struct {
	RetweetCount    int `json:"retweet_count"`
	ReplyCount      int `json:"reply_count"`
	LikeCount       int `json:"like_count"`
	QuoteCount      int `json:"quote_count"`
	BookmarkCount   int `json:"bookmark_count,omitempty"`
	ImpressionCount int `json:"impression_count,omitempty"`
}

// URLEntity is a link found in a tweet.
type URLEntity struct {
	URL         string `json:"url,omitempty"`
	ExpandedURL string `json:"expanded_url,omitempty"`
	DisplayURL  string `json:"display_url,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// Entities holds parsed tweet entities. Only URLs are decoded; other kinds
// are passed through untouched.
type Entities struct {
	URLs     []URLEntity `json:"urls,omitempty"`
	Hashtags []any       `json:"hashtags,omitempty"`
	Mentions []any       `json:"mentions,omitempty"`
}

// ReferencedTweet links a tweet to the one it replies to, quotes or retweets.
type ReferencedTweet struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Tweet is a post. Author fields are filled from expansions when requested.
type Tweet struct {
	ID               string            `json:"id"`
	Text             string            `json:"text"`
	CreatedAt        string            `json:"created_at,omitempty"`
	AuthorID         string            `json:"author_id,omitempty"`
	ConversationID   string            `json:"conversation_id,omitempty"`
	InReplyToUserID  string            `json:"in_reply_to_user_id,omitempty"`
	PublicMetrics    *TweetMetrics     `json:"public_metrics,omitempty"`
	Entities         *Entities         `json:"entities,omitempty"`
	ReferencedTweets []ReferencedTweet `json:"referenced_tweets,omitempty"`
	EditHistory      []string          `json:"edit_history_tweet_ids,omitempty"`

	Author         *User  `json:"author,omitempty"`
	AuthorName     string `json:"author_name,omitempty"`
	AuthorUsername string `json:"author_username,omitempty"`
}

// ArticleURL returns the first expanded URL pointing at an X article.
func (t Tweet) ArticleURL() (URLEntity, bool) {
	if t.Entities == nil {
		return URLEntity{}, false
	}
	for _, u := range t.Entities.URLs {
		if IsArticleURL(u.ExpandedURL) {
			return u, true
		}
	}
	return URLEntity{}, false
}

// List is an X list.
type List struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	MemberCount   int    `json:"member_count,omitempty"`
	FollowerCount int    `json:"follower_count,omitempty"`
	OwnerID       string `json:"owner_id,omitempty"`
	Private       bool   `json:"private"`
}

// DMEvent is one direct message event.
type DMEvent struct {
	ID               string `json:"id"`
	EventType        string `json:"event_type"`
	Text             string `json:"text,omitempty"`
	SenderID         string `json:"sender_id,omitempty"`
	DMConversationID string `json:"dm_conversation_id,omitempty"`
	CreatedAt        string `json:"created_at,omitempty"`
}

// SentDM identifies a message created by SendDM.
type SentDM struct {
	DMConversationID string `json:"dm_conversation_id"`
	DMEventID        string `json:"dm_event_id"`
}

// Trend is one trending topic.
type Trend struct {
	Name            string `json:"name"`
	URL             string `json:"url"`
	PromotedContent any    `json:"promoted_content"`
	Query           string `json:"query"`
	TweetVolume     *int   `json:"tweet_volume"`
}

// Page is a paginated slice of results.
type Page[T any] struct {
	Items      []T
	Users      map[string]User
	NextCursor string
}

// Review is embedded in results of content-producing operations so the
// advisory can be attached to them.
type Review struct {
	Advisory string `json:"advisory,omitempty"`
}

func (r *Review) AdvisoryText() string  { return r.Advisory }
func (r *Review) SetAdvisory(s string) { r.Advisory = s }

// PostedTweet is the result of creating a tweet.
type PostedTweet struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	EditHistory []string `json:"edit_history_tweet_ids,omitempty"`
	Review
}

// TweetRequest is the body of a tweet creation.
type TweetRequest struct {
	Text         string
	ReplyTo      string
	QuoteTweetID string
	MediaIDs     []string
	PollOptions  []string
	PollMinutes  int
}

// ProfileUpdate holds the optional fields of an account profile update.
type ProfileUpdate struct {
	Name        string
	Description string
	Location    string
	URL         string
}

// AccountUser is the user object returned by the account endpoints.
type AccountUser struct {
	ID              string `json:"id_str"`
	Name            string `json:"name"`
	ScreenName      string `json:"screen_name"`
	Description     string `json:"description"`
	Location        string `json:"location"`
	URL             string `json:"url"`
	ProfileImageURL string `json:"profile_image_url_https,omitempty"`
	ProfileBanner   string `json:"profile_banner_url,omitempty"`
}
