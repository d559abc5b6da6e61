// Package textutil provides text processing helpers for topic slugs and
// vocabulary comparison.
//
// Slugs fold French diacritics to ASCII so that rendered document paths stay
// portable across filesystems while remaining recognizable
// ("Sécurité réseau" -> "securite_reseau"). Fingerprints keep accented words
// whole and support cosine comparison of two texts' vocabularies.
package textutil
