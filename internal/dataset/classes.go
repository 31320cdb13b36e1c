package dataset

// EgoObjectsClasses is the category list of the EgoObjects detection
// benchmark. Labels index into it.
var EgoObjectsClasses = []string{
	"accordion", "adhesive_tape", "air_conditioner", "air_fryer",
	"air_purifier", "airplane", "alarm_clock", "almond", "alpaca",
	"aluminium_foil", "ambulance", "ant", "antelope", "apple", "apricot",
	"armadillo", "artichoke", "arugula", "avocado", "axe", "baby_monitor",
	"backpack", "bacon", "badminton_birdie", "badminton_racket", "bagel",
	"balance_beam", "balloon", "banana", "band_aid", "banjo", "barge", "barrel",
	"baseball_bat", "baseball_glove", "basketball", "bat_animal",
	"bathroom_cabinet", "bathtub", "beaker", "beans", "bee", "beef", "beehive",
	"beer", "bell_pepper", "belt", "bench", "bicycle", "bicycle_helmet",
	"bicycle_wheel", "bidet", "billboard", "billiard_table", "binoculars",
	"blackberry", "blanket", "blender", "blue_jay", "blueberry", "bok_choy",
	"bomb", "bonsai", "book", "bookcase", "boot", "bottle", "bottle_opener",
	"bow_and_arrow", "bowl", "bowling_equipment", "box",
	"box_of_macaroni_and_cheese", "boxing_gloves", "brassiere", "bread",
	"bridges", "briefcase", "broccoli", "bronze_sculpture", "brown_bear",
	"brussel_sprouts", "bull", "burrito", "bus", "bust", "butterfly", "cabbage",
	"cabinetry", "cake", "cake_stand", "calculator", "calendar", "camel",
	"camera", "can_opener", "canary", "candle", "candy", "cannon", "canoe",
	"cantaloupe", "carrot", "cart", "cashew", "cassette_deck", "castle", "cat",
	"cat_furniture", "caterpillar", "cattle", "cauliflower", "ceiling_fan",
	"celery", "cello", "centipede", "chainsaw", "chair", "chandelier", "chard",
	"cheese", "cheetah", "cherry", "cherry_tomato", "chest_of_drawers",
	"chicken", "chicken_breast", "chime", "chisel", "chive", "chopsticks",
	"christmas_tree", "closet", "coat", "cocktail", "cocktail_shaker",
	"coconut", "coffee", "coffee_cup", "coffee_table", "coffeemaker", "coin",
	"collard_green", "common_fig", "common_sunflower", "computer_keyboard",
	"computer_monitor", "computer_mouse", "condiment", "convenience_store",
	"cookie", "cooking_spray", "corded_phone", "countertop", "cowboy_hat",
	"crab", "cream", "creamer", "crib", "cricket_ball", "crocodile",
	"croissant", "crown", "crutch", "cucumber", "cupboard", "curtain",
	"cutting_board", "dagger", "deep_fryer", "deer", "dental_floss", "desk",
	"detergent", "diaper", "dice", "digital_clock", "dinosaur", "dishwasher",
	"dog", "dog_bed", "doll", "dolphin", "door", "door_handle", "doughnut",
	"dragonfly", "drawer", "dress", "drill_tool", "drinking_straw",
	"drivers_license", "drum", "duck", "dumbbell", "eagle", "earrings",
	"egg_food", "eggplant", "elephant", "endive", "envelope", "eraser",
	"face_powder", "facial_tissue_holder", "falcon", "fax", "fedora",
	"filing_cabinet", "fire", "fire_alarm", "fire_hydrant", "fire_truck",
	"firearm", "fireplace", "firework", "fishing_pole", "flag", "flashlight",
	"floor_lamp", "flowerpot", "flute", "flying_disc", "food_processor",
	"football", "football_helmet", "fork", "fountain", "fox", "french_fries",
	"french_horn", "frisée", "frog", "fruit_juice", "frying_pan",
	"game_controller_pad", "garden_asparagus", "garlic", "gas_stove", "gift",
	"ginger", "giraffe", "glasses", "glove", "goat", "goggles", "goldfish",
	"golf_ball", "golf_cart", "gondola", "goose", "grape", "grapefruit",
	"grinder", "ground_chicken", "ground_turkey", "guacamole", "guitar",
	"hair_dryer", "hair_spray", "hamburger", "hammer", "hamster", "hand_dryer",
	"handbag", "handgun", "harbor_seal", "harmonica", "harp", "harpsichord",
	"headphones", "heart_rate_monitor", "heater", "hedgehog", "helicopter",
	"high_heels", "hiking_equipment", "hippopotamus", "hockey_puck",
	"hockey_stick", "honeycomb", "honeydew", "horizontal_bar", "horse",
	"hot_dog", "house", "house_car_key", "houseplant", "humidifier",
	"ice_cream", "indoor_rower", "infant_bed", "ipod", "isopod", "jacket",
	"jacuzzi", "jaguar_animal", "jeans", "jellyfish", "jet_ski", "jug", "juice",
	"juicer", "kale", "kangaroo", "kettle", "kitchen_and_dining_room_table",
	"kite", "kiwi", "knife", "koala", "lacrosse_ball", "lacrosse_stick",
	"ladder", "ladle", "ladybug", "lamp", "lamp_shade", "lantern", "laptop",
	"laptop_charger", "lavender_plant", "lemon", "lemonade", "leopard",
	"lettuce", "light_bulb", "light_switch", "lighthouse", "lily", "lime",
	"limousine", "lion", "lipstick", "lizard", "lobster", "loveseat", "lynx",
	"magpie", "mango", "maple", "maracas", "measuring_cup", "mechanical_fan",
	"microphone", "microwave_oven", "milk", "miniskirt", "mirror", "missile",
	"mixer", "mixing_bowl", "mobile_phone", "monkey", "motorcycle", "mouse",
	"mouthwash", "muffin", "mug", "mule", "mushroom", "musical_keyboard",
	"mussel", "nail_construction", "napkin", "necklace", "nectarine",
	"night_light", "nightstand", "notebook", "oboe", "office_building", "onion",
	"orange", "organ", "ostrich", "otter", "oven", "owl", "oyster", "paddle",
	"palm_tree", "pancake", "panda", "papaya", "paper", "paper_cutter",
	"paper_towel", "parachute", "parking_meter", "parrot", "parsnip",
	"passport", "pasta", "pasta_and_noodles", "pattypan_squash", "peach",
	"peacock", "pear", "pen", "pencil", "pencil_case", "pencil_sharpener",
	"penguin", "peppers", "perfume", "personal_flotation_device",
	"phone_charger", "piano", "picnic_basket", "picture_frame", "pig", "pillow",
	"pineapple", "pitcher_container", "pizza", "pizza_cutter", "plastic_bag",
	"plate", "platter", "playstation", "plum", "polar_bear", "police_car",
	"pomegranate", "pop_tarts", "popcorn", "porch", "porcupine", "pork",
	"post_it", "poster", "potato", "pottery", "power_plugs_and_sockets",
	"prawn", "pressure_cooker", "pretzel", "printer", "projector", "pumpkin",
	"punching_bag", "rabbit", "raccoon", "radicchio", "radish", "raspberry",
	"ratchet_device", "raven", "rays_and_skates", "receipt", "red_panda",
	"red_tomato", "refrigerator", "remote_control", "rhinoceros", "rhubarb",
	"rifle", "ring", "ring_binder", "robotic_vacuum", "rocket", "roller_skates",
	"rose", "rugby_ball", "ruler", "salad", "salmon", "salt_and_pepper_shakers",
	"sandal", "saucer", "sausage", "saxophone", "scale", "scallop", "scarf",
	"scissors", "scoreboard", "scorpion", "screwdriver", "sea_lion",
	"sea_turtle", "seahorse", "seat_belt", "segway",
	"semi_truck_truck_with_long_trailer", "serving_tray", "sewing_machine",
	"shallot", "shark", "shaving_cream", "sheep", "shelf", "shirt", "shorts",
	"shotgun", "shower", "shrimp", "sink", "skateboard", "ski", "skull",
	"skunk", "skyscraper", "slow_cooker", "snail", "snake", "snowboard",
	"snowman", "snowmobile", "snowplow", "soap", "soap_dispenser",
	"soccer_ball", "sock", "sofa", "sombrero", "sound_bar", "sparrow",
	"spatula", "speaker_stereo_equipment", "spice_rack", "spider", "spinach",
	"spoon", "sports_uniform", "squid", "squirrel", "stairs", "stapler",
	"starfish", "stationary_bicycle", "stethoscope", "stool", "stop_sign",
	"strawberry", "street_light", "stretcher", "studio_couch", "submarine",
	"submarine_sandwich", "suit", "suitcase", "sun_hat", "sunglasses",
	"surfboard", "sushi", "swan", "sweet_potato", "swim_cap", "swimming_pool",
	"swimwear", "sword", "syringe", "table_tennis_racket", "tablet_computer",
	"taco", "tangerine", "tank", "tap", "tart", "taxi", "tea", "tea_cup",
	"teapot", "teddy_bear", "television", "tennis_ball", "tennis_racket",
	"tent", "thermostat", "tiara", "tick", "tie", "tiger", "tin_can", "tire",
	"toaster", "toilet", "toilet_paper", "tomato", "toothbrush", "toothpaste",
	"torch", "tortoise", "towel", "tower", "traffic_light", "train",
	"training_bench", "trampoline", "treadmill", "tree_house", "tripod",
	"trombone", "truck", "trumpet", "turkey", "turnip", "umbrella", "unicycle",
	"vacuum", "van", "vase", "vehicle_registration_plate", "violin",
	"volleyball_ball", "waffle", "waffle_iron", "wall_clock", "wallet",
	"wardrobe", "washing_machine", "waste_container", "watch", "water_glass",
	"watermelon", "whale", "wheel", "wheelchair", "whisk", "whiteboard",
	"willow", "window", "window_blind", "wine", "wine_glass", "wine_rack",
	"winter_melon", "wok", "wood_burning_stove", "woodpecker", "worm", "wrench",
	"xbox", "yoga_mat", "zebra", "zucchini",
}
