package cart

import "fmt"

type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a user-facing message produced by a cart operation. Clamping is
// reported through notices rather than errors.
type Notice struct {
	Level     Level  `json:"level"`
	ProductID uint   `json:"product_id,omitempty"`
	Message   string `json:"message"`
}

func success(id uint, format string, args ...any) Notice {
	return Notice{Level: LevelSuccess, ProductID: id, Message: fmt.Sprintf(format, args...)}
}

func warning(id uint, format string, args ...any) Notice {
	return Notice{Level: LevelWarning, ProductID: id, Message: fmt.Sprintf(format, args...)}
}

func failure(id uint, format string, args ...any) Notice {
	return Notice{Level: LevelError, ProductID: id, Message: fmt.Sprintf(format, args...)}
}
