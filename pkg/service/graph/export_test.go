package graph

const MaxListPages = maxListPages
