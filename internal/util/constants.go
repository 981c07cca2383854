package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

// 文件上传相关常量
const (
	MimeImage        = "image/"
	MaxIconSizeBytes = 2 << 20
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

var (
	AllowedIconExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}
)
