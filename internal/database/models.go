package database

// Meme is a persisted feed record. Records are immutable after creation;
// there is no update or delete path.
type Meme struct {
	ID          string   `json:"id"`
	NewsURL     *string  `json:"newsUrl,omitempty"`
	NewsTitle   *string  `json:"newsTitle,omitempty"`
	NewsContent string   `json:"newsContent"`
	Summary     string   `json:"summary"`
	MemeText    string   `json:"memeText"`
	Emojis      []string `json:"emojis"`
	ImageURL    string   `json:"imageUrl"`
	GifURLs     []string `json:"gifUrls,omitempty"`
	CreatedAt   string   `json:"createdAt"`
}

// Stats contains aggregate database statistics.
type Stats struct {
	TotalMemes int
	Newest     string
}
