package model

type Role string

const (
	RoleReader     Role = "reader"
	RoleTranslator Role = "translator"
	RoleAdmin      Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleReader, RoleTranslator, RoleAdmin:
		return true
	}
	return false
}

type Status string

const (
	StatusReading    Status = "reading"
	StatusCompleted  Status = "completed"
	StatusPlanToRead Status = "plan_to_read"
	StatusDropped    Status = "dropped"
)

func (s Status) Valid() bool {
	switch s {
	case StatusReading, StatusCompleted, StatusPlanToRead, StatusDropped:
		return true
	}
	return false
}

type Language string

const (
	LangEN Language = "en"
	LangUA Language = "ua"
)

func (l Language) Valid() bool {
	return l == LangEN || l == LangUA
}

type RequirementType string

const (
	ReqReadManhwa     RequirementType = "read_manhwa"
	ReqWriteReview    RequirementType = "write_review"
	ReqCreateCategory RequirementType = "create_category"
	ReqAddToCategory  RequirementType = "add_to_category"
	ReqRateManhwa     RequirementType = "rate_manhwa"
)

func (t RequirementType) Valid() bool {
	switch t {
	case ReqReadManhwa, ReqWriteReview, ReqCreateCategory, ReqAddToCategory, ReqRateManhwa:
		return true
	}
	return false
}

type User struct {
	ID           int64    `json:"id" db:"id"`
	Username     string   `json:"username" db:"username"`
	Email        string   `json:"email" db:"email"`
	PasswordHash string   `json:"-" db:"password_hash"`
	Role         Role     `json:"role" db:"role"`
	Level        int      `json:"level" db:"level"`
	Experience   int      `json:"experience" db:"experience"`
	Language     Language `json:"language" db:"language"`
	DarkMode     bool     `json:"darkMode" db:"dark_mode"`
	Version      int64    `json:"-" db:"version"`
	CreatedAt    int64    `json:"createdAt" db:"created_at"`
	UpdatedAt    int64    `json:"updatedAt" db:"updated_at"`
}

// Progress is one user's reading state for one manhwa.
type Progress struct {
	ID               int64  `json:"id" db:"id"`
	UserID           int64  `json:"userId" db:"user_id"`
	ManhwaID         string `json:"manhwaId" db:"manhwa_id"`
	Title            string `json:"title" db:"title"`
	CoverImage       string `json:"coverImage" db:"cover_image"`
	LastChapterRead  int    `json:"lastChapterRead" db:"last_chapter_read"`
	IsCompleted      bool   `json:"isCompleted" db:"is_completed"`
	Rating           int    `json:"rating" db:"rating"`
	Review           string `json:"review" db:"review"`
	Status           Status `json:"status" db:"status"`
	IsLiked          bool   `json:"isLiked" db:"is_liked"`
	ExperienceGained int    `json:"experienceGained" db:"experience_gained"`
	Rewarded         int    `json:"-" db:"rewarded"`
	Version          int64  `json:"-" db:"version"`
	CreatedAt        int64  `json:"createdAt" db:"created_at"`
	UpdatedAt        int64  `json:"updatedAt" db:"updated_at"`
}

type Category struct {
	ID          int64           `json:"id" db:"id"`
	UserID      int64           `json:"userId" db:"user_id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Manhwas     []CategoryEntry `json:"manhwas" db:"-"`
	CreatedAt   int64           `json:"createdAt" db:"created_at"`
	UpdatedAt   int64           `json:"updatedAt" db:"updated_at"`
}

type CategoryEntry struct {
	ManhwaID   string `json:"manhwaId" db:"manhwa_id"`
	Title      string `json:"title" db:"title"`
	CoverImage string `json:"coverImage" db:"cover_image"`
	AddedAt    int64  `json:"addedAt" db:"added_at"`
}

type Requirement struct {
	Type  RequirementType `json:"type" yaml:"type"`
	Count int             `json:"count" yaml:"count"`
}

type LevelTask struct {
	Level        int                 `json:"level" yaml:"level"`
	Description  map[Language]string `json:"description" yaml:"description"`
	Requirements []Requirement       `json:"requirements" yaml:"requirements"`
	Reward       int                 `json:"reward" yaml:"reward"`
}

// LocalizedDescription returns the description in lang, falling back to English.
func (t *LevelTask) LocalizedDescription(lang Language) string {
	if d, ok := t.Description[lang]; ok && d != "" {
		return d
	}
	return t.Description[LangEN]
}

// Manga is the catalog view of a title.
type Manga struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	CoverImage    string   `json:"coverImage"`
	Status        string   `json:"status"`
	Tags          []string `json:"tags"`
	Author        string   `json:"author"`
	ContentRating string   `json:"rating"`
	LastUpdated   string   `json:"lastUpdated"`
}

type SearchOrder string

const (
	OrderRelevance SearchOrder = "relevance"
	OrderFollowed  SearchOrder = "followedCount"
)

type SearchQuery struct {
	Title  string
	Limit  int
	Offset int
	Order  SearchOrder
}

type MangaPage struct {
	Total int     `json:"total"`
	Manga []Manga `json:"manga"`
}

type Chapter struct {
	ID          string  `json:"id"`
	Chapter     *string `json:"chapter"`
	Title       *string `json:"title"`
	Pages       int     `json:"pages"`
	PublishedAt string  `json:"publishedAt"`
	Volume      *string `json:"volume"`
	Language    string  `json:"language"`
}

type ChapterPage struct {
	Total    int       `json:"total"`
	Chapters []Chapter `json:"chapters"`
}

type ChapterImages struct {
	Pages   []string `json:"pages"`
	PagesHQ []string `json:"pagesHQ"`
}
