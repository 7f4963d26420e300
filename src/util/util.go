package util

import (
	"net/url"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/spf13/viper"
)

// ReadConfig fills out from the config file and the environment. Fields
// already set in out act as defaults, and every field can be overridden by
// an env var named after its key (log.level -> LOG_LEVEL). An empty
// filePath reads the environment only.
func ReadConfig(filePath string, out interface{}) error {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // for nested structure
	v.AutomaticEnv()

	// AutomaticEnv只对viper已知的key生效，先把所有字段注册为默认值
	setDefaults(v, "", reflect.ValueOf(out))

	if filePath != "" {
		v.SetConfigFile(filePath)
		if err := v.ReadInConfig(); err != nil {
			return err
		}
	}

	if err := v.Unmarshal(out); err != nil {
		return err
	}

	return nil
}

func setDefaults(v *viper.Viper, prefix string, rv reflect.Value) {
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return
	}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if f.PkgPath != "" {
			continue
		}
		name := strings.Split(f.Tag.Get("mapstructure"), ",")[0]
		if name == "" || name == "-" {
			name = strings.ToLower(f.Name)
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		if f.Type.Kind() == reflect.Struct {
			setDefaults(v, key, rv.Field(i))
			continue
		}
		v.SetDefault(key, rv.Field(i).Interface())
	}
}

// host中可能残留有:port信息，需要进一步移除
func GetDomain(u string) (string, error) {
	oURL, err := url.Parse(u)
	if err != nil {
		return "", err
	}
	return strings.Split(oURL.Host, ":")[0], nil
}

// 将url的协议、query、hash tag字段移除，用作文件名
func ShortifyURL(u string) (string, error) {
	oURL, err := url.Parse(u)
	if err != nil {
		return "", err
	}
	oURL.Scheme = ""
	oURL.RawQuery = ""
	oURL.Fragment = ""
	return oURL.String(), nil
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// FileName 将url转为可用作文件名的形式
func FileName(u string) (string, error) {
	s, err := ShortifyURL(u)
	if err != nil {
		return "", err
	}
	s = strings.Trim(s, "/")
	return strings.NewReplacer("/", "_", ":", "_", "\\", "_").Replace(s), nil
}
