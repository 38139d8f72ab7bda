package check

import (
	"reflect"
	"strings"
	"testing"
)

func TestRunContext(t *testing.T) {
	t.Run("读写删除", func(t *testing.T) {
		rc := NewRunContext()

		rc.Set("session_id", "s-1")
		if v, ok := rc.Get("session_id"); !ok || v != "s-1" {
			t.Errorf("Get失败: %q, %v", v, ok)
		}

		rc.Delete("session_id")
		if _, ok := rc.Get("session_id"); ok {
			t.Error("删除后仍可读取")
		}
	})

	t.Run("MustGet缺失键返回描述性错误", func(t *testing.T) {
		rc := NewRunContext()

		_, err := rc.MustGet("access_token")
		if err == nil {
			t.Fatal("期望错误")
		}
		if !strings.Contains(err.Error(), "access_token") {
			t.Errorf("错误应包含键名: %v", err)
		}
	})

	t.Run("Keys排序返回", func(t *testing.T) {
		rc := NewRunContext()
		rc.Set("b", "2")
		rc.Set("a", "1")
		rc.Set("c", "3")

		if got := rc.Keys(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
			t.Errorf("Keys错误: %v", got)
		}
		if rc.Len() != 3 {
			t.Errorf("Len错误: %d", rc.Len())
		}
	})
}
