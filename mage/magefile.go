//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName   = "../bin/chat-server"
	mainPath     = ".."
	storagePath  = "/tmp/chat-server"
	redisName    = "chat-server-redis"
	redisVersion = "redis:7-alpine"
)

// RedisUp starts the redis container used by the rate limiter.
func RedisUp() error {
	fmt.Println("🚀 Starting redis container...")
	if err := sh.Run("docker", "start", redisName); err == nil {
		return nil
	}
	return sh.RunV("docker", "run", "-d", "--name", redisName, "-p", "6379:6379", redisVersion)
}

// RedisDown removes the redis container.
func RedisDown() error {
	fmt.Println("🛑 Removing redis container...")
	return sh.RunV("docker", "rm", "-f", redisName)
}

// Build compiles the server binary.
func Build() error {
	fmt.Println("🔨 Building server binary...")
	return sh.RunV("go", "build", "-o", binaryName, mainPath)
}

// Test runs the unit tests. Redis-backed tests skip when redis is down.
func Test() error {
	fmt.Println("🧪 Running tests...")
	return sh.RunV("go", "test", "-race", "../...")
}

// Run starts redis and the server.
func Run() error {
	mg.Deps(RedisUp, Build)
	fmt.Println("▶️  Starting chat server...")
	return sh.RunV(binaryName)
}

// Clean removes build output, local databases and jetstream storage.
func Clean() {
	fmt.Println("🧹 Cleaning up...")
	for _, path := range []string{binaryName, "../auth.db", "../friends.db", "../chat.db"} {
		os.Remove(path)
	}
	os.RemoveAll(storagePath)
	mg.Deps(RedisDown)
}
