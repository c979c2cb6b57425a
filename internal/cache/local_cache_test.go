package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLocalCacheTTL(t *testing.T) {
	c := NewLocalCache(10, time.Minute)
	defer c.Close()

	t.Run("命中与未命中", func(t *testing.T) {
		c.Set("a", 42, 0)
		val, ok := c.Get("a")
		assert.True(t, ok)
		assert.Equal(t, 42, val)

		_, ok = c.Get("missing")
		assert.False(t, ok)
	})

	t.Run("过期条目视同不存在", func(t *testing.T) {
		c.Set("b", "soon gone", time.Nanosecond)
		time.Sleep(time.Millisecond)
		_, ok := c.Get("b")
		assert.False(t, ok)
	})

	t.Run("删除与清空", func(t *testing.T) {
		c.Set("c", 1, 0)
		c.Delete("c")
		_, ok := c.Get("c")
		assert.False(t, ok)

		c.Set("d", 1, 0)
		c.Clear()
		assert.Equal(t, 0, c.Len())
	})
}

func TestLocalCacheCapacity(t *testing.T) {
	c := NewLocalCache(3, time.Minute)
	defer c.Close()

	// 第一个条目最先到期，写满之后它应该第一个被淘汰
	c.Set("first", 1, time.Second)
	c.Set("second", 2, time.Minute)
	c.Set("third", 3, time.Minute)
	c.Set("fourth", 4, time.Minute)

	assert.Equal(t, 3, c.Len())
	_, ok := c.Get("first")
	assert.False(t, ok)
	for _, key := range []string{"second", "third", "fourth"} {
		_, ok := c.Get(key)
		assert.True(t, ok, key)
	}
}

func TestLocalCacheCapacityStaysBounded(t *testing.T) {
	c := NewLocalCache(8, time.Minute)
	defer c.Close()

	for i := 0; i < 100; i++ {
		c.Set(fmt.Sprintf("key-%d", i), i, time.Minute)
	}
	assert.Equal(t, 8, c.Len())

	// 覆盖已有键不触发淘汰
	c.Set("key-99", 0, time.Minute)
	assert.Equal(t, 8, c.Len())
}

func TestLocalCacheClose(t *testing.T) {
	c := NewLocalCache(4, time.Minute)

	c.Close()
	c.Close() // 重复关闭不 panic

	// 关闭后仍可读写
	c.Set("a", 1, 0)
	val, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, val)
}
