package i18n

import "sync"

// Translator retrieves localized messages for Issue codes.
// data provides optional metadata to embed in the message (for example,
// "key" or "kind").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	var msg string
	switch t.lang {
	case "ja":
		switch code {
		case "unencodable_scalar":
			msg = "スカラー値を符号化できません"
		case "ambiguous_category":
			msg = "値の種別を判定できません"
		case "cyclic_structure":
			msg = "循環参照を検出しました"
		case "depth_exceeded":
			msg = "ネストが深すぎます"
		case "duplicate_key":
			msg = "キーが重複しています"
		case "type_mismatch":
			msg = "宣言された型と値が一致しません"
		case "invalid_descriptor":
			msg = "型記述子が不正です"
		}
	default: // "en"
		switch code {
		case "unencodable_scalar":
			msg = "scalar cannot be encoded"
		case "ambiguous_category":
			msg = "cannot determine value category"
		case "cyclic_structure":
			msg = "cyclic structure"
		case "depth_exceeded":
			msg = "nesting too deep"
		case "duplicate_key":
			msg = "duplicate key"
		case "type_mismatch":
			msg = "value does not match declared type"
		case "invalid_descriptor":
			msg = "invalid type descriptor"
		}
	}
	if msg == "" {
		return code
	}
	if d := data["detail"]; d != "" {
		return msg + ": " + d
	}
	return msg
}

var (
	mu                sync.RWMutex
	currentTranslator Translator = dictTranslator{lang: "en"}
)

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	mu.Lock()
	currentTranslator = dictTranslator{lang: lang}
	mu.Unlock()
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		tr = dictTranslator{lang: "en"}
	}
	mu.Lock()
	currentTranslator = tr
	mu.Unlock()
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string {
	mu.RLock()
	tr := currentTranslator
	mu.RUnlock()
	return tr.Message(code, data)
}
