package roomid

var adjectives = []string{
	"amber", "brave", "calm", "daring", "eager", "fuzzy", "gentle", "hidden", "icy", "jolly",
	"kind", "lucky", "mellow", "nimble", "odd", "proud", "quiet", "rapid", "shy", "tidy",
	"upbeat", "vivid", "witty", "young", "zesty", "bold", "cozy", "dusty", "fancy", "grand",
}

var animals = []string{
	"badger", "bison", "crane", "dingo", "egret", "ferret", "gecko", "heron", "ibis", "jackal",
	"koala", "lemur", "marmot", "newt", "ocelot", "panda", "quail", "raven", "stoat", "tapir",
	"urchin", "vole", "walrus", "yak", "zebra", "otter", "puffin", "beaver", "moose", "lynx",
}

var places = []string{
	"harbor", "meadow", "canyon", "glacier", "orchard", "lagoon", "summit", "valley", "prairie", "delta",
	"island", "forest", "desert", "tundra", "marsh", "ridge", "grove", "bay", "cove", "dune",
	"fjord", "mesa", "plateau", "reef", "spring", "steppe", "harvest", "beacon", "garden", "station",
}

var objects = []string{
	"anchor", "lantern", "compass", "kettle", "ribbon", "pebble", "button", "candle", "feather", "marble",
	"teapot", "whistle", "mitten", "pretzel", "rocket", "saddle", "thimble", "umbrella", "violin", "wagon",
	"biscuit", "crayon", "drum", "easel", "flute", "goblet", "hammock", "igloo", "jigsaw", "kite",
}
