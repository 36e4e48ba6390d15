package i18n

import (
	"embed"
	"encoding/json"
	"io/fs"
	"path"

	"AmberWatch/pkg/logger"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// I18nSupport 国际化支持结构体
type I18nSupport struct {
	bundle  *i18n.Bundle
	matcher language.Matcher
	tags    []language.Tag
}

// NewI18nSupport 加载内嵌的语言文件，defaultLang 作为回退语言
func NewI18nSupport(defaultLang string) (*I18nSupport, error) {
	def, err := language.Parse(defaultLang)
	if err != nil {
		return nil, err
	}
	bundle := i18n.NewBundle(def)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	files, err := fs.Glob(localeFS, "locales/*.json")
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		buf, err := localeFS.ReadFile(f)
		if err != nil {
			return nil, err
		}
		if _, err := bundle.ParseMessageFileBytes(buf, path.Base(f)); err != nil {
			return nil, err
		}
	}

	// 默认语言放在首位，匹配失败时回退到它
	tags := []language.Tag{def}
	for _, t := range bundle.LanguageTags() {
		if t != def {
			tags = append(tags, t)
		}
	}
	return &I18nSupport{bundle: bundle, matcher: language.NewMatcher(tags), tags: tags}, nil
}

// Match 根据 Accept-Language 或显式语言参数选出支持的语言
func (i *I18nSupport) Match(prefs ...string) string {
	var wanted []language.Tag
	for _, p := range prefs {
		if p == "" {
			continue
		}
		parsed, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		wanted = append(wanted, parsed...)
	}
	_, idx, _ := i.matcher.Match(wanted...)
	base, _ := i.tags[idx].Base()
	return base.String()
}

// T 获取翻译文本，缺失时返回键名
func (i *I18nSupport) T(languageTag, key string, templateData map[string]interface{}) string {
	localizer := i18n.NewLocalizer(i.bundle, languageTag)
	translation, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: templateData,
	})
	if err != nil {
		logger.Warn("translate failed", zap.String("key", key), zap.String("lang", languageTag), zap.Error(err))
		return key
	}
	return translation
}

// Languages 已加载的语言
func (i *I18nSupport) Languages() []string {
	out := make([]string, 0, len(i.tags))
	for _, t := range i.tags {
		out = append(out, t.String())
	}
	return out
}
