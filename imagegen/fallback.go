package imagegen

import "math/rand"

// fallbackImages are known-good stock photos served directly from the
// Unsplash CDN. One of these is returned when every provider in the chain
// fails, so a caller always receives a usable URL.
var fallbackImages = []string{
	"https://images.unsplash.com/photo-1472214103451-9374bd1c798e?w=800&h=450&fit=crop&crop=center&q=80",
	"https://images.unsplash.com/photo-1507003211169-0a1dd7884af1?w=800&h=450&fit=crop&crop=center&q=80",
	"https://images.unsplash.com/photo-1509228627373-8e45f8e18f06?w=800&h=450&fit=crop&crop=center&q=80",
}

// FallbackImageURL returns a random static fallback image. The result is
// never cached; a later request for the same prompt should retry the real
// providers.
func FallbackImageURL() string {
	return fallbackImages[rand.Intn(len(fallbackImages))]
}
