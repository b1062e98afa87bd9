// Package yad2 fetches rental listings from the yad2 real estate feed.
//
// The site embeds its feed as JSON inside the search result page. The
// client requests the rent search page once per configured neighborhood,
// extracts the embedded state and normalizes the private and agency
// feeds into domain listings. Records without a site-assigned id are
// dropped at this boundary; they can never be deduplicated downstream.
package yad2
