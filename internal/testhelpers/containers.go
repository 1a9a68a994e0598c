//go:build container

// Package testhelpers 用 testcontainers 启动集成测试依赖的 redis 与 mysql。
// 只在 -tags container 时编译，需要本机有 docker。
package testhelpers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	mysqlPassword = "secret"
	mysqlDatabase = "storefront"
)

func start(t *testing.T, ctx context.Context, req testcontainers.ContainerRequest) testcontainers.Container {
	t.Helper()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start %s container: %v", req.Image, err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate %s container: %v", req.Image, err)
		}
	})
	return container
}

func endpoint(t *testing.T, ctx context.Context, c testcontainers.Container, port string) string {
	t.Helper()
	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, nat.Port(port))
	if err != nil {
		t.Fatalf("Failed to get mapped port %s: %v", port, err)
	}
	return fmt.Sprintf("%s:%s", host, mapped.Port())
}

// StartRedis 返回 host:port。
func StartRedis(t *testing.T, ctx context.Context) string {
	t.Helper()
	c := start(t, ctx, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
	})
	addr := endpoint(t, ctx, c, "6379/tcp")
	t.Logf("redis started: %s", addr)
	return addr
}

// StartMySQL 返回可直接给 gorm 使用的 DSN。
func StartMySQL(t *testing.T, ctx context.Context) string {
	t.Helper()
	c := start(t, ctx, testcontainers.ContainerRequest{
		Image:        "mysql:8.0",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": mysqlPassword,
			"MYSQL_DATABASE":      mysqlDatabase,
		},
		// 初始化阶段也会打印 ready for connections，但端口是 0
		WaitingFor: wait.ForAll(
			wait.ForLog("port: 3306  MySQL Community Server"),
			wait.ForListeningPort("3306/tcp"),
		).WithDeadline(2 * time.Minute),
	})
	addr := endpoint(t, ctx, c, "3306/tcp")
	t.Logf("mysql started: %s", addr)
	return fmt.Sprintf("root:%s@tcp(%s)/%s?charset=utf8mb4", mysqlPassword, addr, mysqlDatabase)
}
