// Package svgutil rewrites SVG assets for distribution formats.
//
// EPUB readers are strict and inconsistent about SVG: a missing xmlns
// makes some refuse the image, an XML prolog confuses others, and opacity
// is mishandled widely enough that stripping it is the safer default.
// PDF compilation keeps SVGs vector but needs their font-family
// references pointed at a font the host actually has, or CJK glyphs drop
// out silently.
package svgutil
