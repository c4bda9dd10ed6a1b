package cache

import (
	"crypto/md5"
	"fmt"
	"sort"
	"strings"
)

// KeyFor builds a stable key from path + sorted params. Secrets such as API
// keys must not be passed in params.
func KeyFor(path string, params map[string]string) string {
	var parts []string
	for k, v := range params {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)

	cleanPath := strings.Trim(strings.ReplaceAll(path, "/", "_"), "_")
	if cleanPath == "" {
		cleanPath = "root"
	}

	if len(parts) > 0 {
		return sanitizeKey(fmt.Sprintf("%s__%s", cleanPath, strings.Join(parts, "__")))
	}
	return sanitizeKey(cleanPath)
}

// sanitizeKey ensures the key is safe for use as a filename
func sanitizeKey(key string) string {
	// For very long keys, use hash to avoid filesystem limits
	if len(key) > 200 {
		hash := md5.Sum([]byte(key))
		return fmt.Sprintf("hash_%x", hash)
	}

	unsafe := []string{"/", "\\", ":", "?", "&", "=", "#", "<", ">", "|", "*", "\"", " "}
	result := key
	for _, char := range unsafe {
		result = strings.ReplaceAll(result, char, "_")
	}
	return result
}
